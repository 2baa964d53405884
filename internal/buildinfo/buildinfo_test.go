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

package buildinfo

import "testing"

func TestBuildInfo(t *testing.T) {
	t.Parallel()

	if RoadsExport.ID() == "" {
		t.Error("expected id to be set")
	}
	if got, want := RoadsExport.Tag(), "unknown"; got != want {
		t.Errorf("expected %q to be %q", got, want)
	}
}
