// Copyright 2023 the Roads Export authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package osmconfig

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidIdentifier is returned when a table, schema or country code is
// not safe to interpolate into a query.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var (
	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	iso3Re       = regexp.MustCompile(`^[A-Za-z]{3}$`)
)

// ValidateIdentifier checks that name is a plain SQL identifier. Table and
// schema names are interpolated unquoted into the export query, so anything
// else is rejected.
func ValidateIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// ValidateISO3 checks that code looks like an ISO 3166-1 alpha-3 code.
func ValidateISO3(code string) error {
	if !iso3Re.MatchString(code) {
		return fmt.Errorf("%w: %q is not an ISO3 code", ErrInvalidIdentifier, code)
	}
	return nil
}
