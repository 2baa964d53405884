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
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
)

// Compile-time check to verify implements interface.
var _ toml.Unmarshaler = (*Connection)(nil)

// requiredFields are the connection keys that must be present.
var requiredFields = []string{"host", "user", "password", "name", "port", "schema"}

// FieldError reports a missing or mistyped connection field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("connection.%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

var (
	ErrMissingField = errors.New("missing")
	ErrFieldType    = errors.New("wrong type")
)

// Connection describes the database the export tool reads from.
type Connection struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	Schema   string

	// Optional libpq settings.
	SSLMode        string
	ConnectTimeout int

	conn string
}

// optionalFields are decoded with mapstructure after the required fields
// have been checked.
type optionalFields struct {
	SSLMode        string `mapstructure:"sslmode"`
	ConnectTimeout int    `mapstructure:"connect_timeout"`
}

// UnmarshalTOML builds the connection from the generic [connection] table.
func (c *Connection) UnmarshalTOML(data interface{}) error {
	m, ok := data.(map[string]interface{})
	if !ok {
		return fmt.Errorf("connection: expected table, got %T", data)
	}

	values := make(map[string]string, len(requiredFields))
	for _, field := range requiredFields {
		raw, ok := m[field]
		if !ok {
			return &FieldError{Field: field, Err: ErrMissingField}
		}

		switch v := raw.(type) {
		case string:
			values[field] = v
		case int64:
			if field != "port" {
				return &FieldError{Field: field, Err: fmt.Errorf("%w: expected string, got %T", ErrFieldType, raw)}
			}
			values[field] = strconv.FormatInt(v, 10)
		default:
			return &FieldError{Field: field, Err: fmt.Errorf("%w: expected string, got %T", ErrFieldType, raw)}
		}
	}

	port, err := strconv.Atoi(values["port"])
	if err != nil || port <= 0 || port > 65535 {
		return &FieldError{Field: "port", Err: fmt.Errorf("%w: %q is not a valid port", ErrFieldType, values["port"])}
	}

	var opts optionalFields
	if err := mapstructure.Decode(m, &opts); err != nil {
		return fmt.Errorf("connection: %w", err)
	}

	*c = Connection{
		Host:           values["host"],
		User:           values["user"],
		Password:       values["password"],
		Name:           values["name"],
		Port:           values["port"],
		Schema:         values["schema"],
		SSLMode:        opts.SSLMode,
		ConnectTimeout: opts.ConnectTimeout,
	}
	c.conn = c.build()
	return nil
}

// ConnectionString returns the OGR PostgreSQL datasource string:
//
//	PG:dbname='gis' host='localhost' port=5432 user='osm' password='osm'
func (c *Connection) ConnectionString() string {
	if c.conn == "" {
		c.conn = c.build()
	}
	return c.conn
}

// DSN returns the libpq key/value connection string, suitable for pgx.
func (c *Connection) DSN() string {
	return strings.TrimPrefix(c.ConnectionString(), "PG:")
}

// String returns a representation that is safe to log.
func (c *Connection) String() string {
	pwSet := "<set>"
	if c.Password == "" {
		pwSet = "<not set>"
	}
	return fmt.Sprintf("{Name:%v User:%v Host:%v Port:%v Schema:%v Password:%v SSLMode:%v}",
		c.Name, c.User, c.Host, c.Port, c.Schema, pwSet, c.SSLMode)
}

func (c *Connection) build() string {
	var b strings.Builder
	fmt.Fprintf(&b, "PG:dbname='%s' host='%s' port=%s user='%s' password='%s'",
		quote(c.Name), quote(c.Host), c.Port, quote(c.User), quote(c.Password))
	if c.SSLMode != "" {
		fmt.Fprintf(&b, " sslmode='%s'", quote(c.SSLMode))
	}
	if c.ConnectTimeout > 0 {
		fmt.Fprintf(&b, " connect_timeout=%d", c.ConnectTimeout)
	}
	return b.String()
}

var quoter = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// quote escapes a value for a single-quoted libpq parameter.
func quote(s string) string {
	return quoter.Replace(s)
}
