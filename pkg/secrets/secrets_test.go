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

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/osmroads/roads-export/internal/project"
)

func TestRegisteredManagers(t *testing.T) {
	t.Parallel()

	got := RegisteredManagers()
	for _, want := range []string{"FILESYSTEM", "IN_MEMORY", "NOOP"} {
		found := false
		for _, name := range got {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %q to be registered in %v", want, got)
		}
	}
}

func TestSecretManagerFor(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	cases := []struct {
		name string
		cfg  *Config
		typ  interface{}
		err  bool
	}{
		{
			name: "noop",
			cfg:  &Config{Type: SecretManagerTypeNoop},
			typ:  &Noop{},
		},
		{
			name: "in_memory",
			cfg:  &Config{Type: SecretManagerTypeInMemory},
			typ:  &InMemory{},
		},
		{
			name: "expansion",
			cfg:  &Config{Type: SecretManagerTypeInMemory, SecretExpansion: true},
			typ:  &JSONExpander{},
		},
		{
			name: "unknown",
			cfg:  &Config{Type: "NOPE"},
			err:  true,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sm, err := SecretManagerFor(ctx, tc.cfg)
			if (err != nil) != tc.err {
				t.Fatal(err)
			}
			if tc.err {
				return
			}

			switch tc.typ.(type) {
			case *Noop:
				if _, ok := sm.(*Noop); !ok {
					t.Errorf("expected %T to be *Noop", sm)
				}
			case *InMemory:
				if _, ok := sm.(*InMemory); !ok {
					t.Errorf("expected %T to be *InMemory", sm)
				}
			case *JSONExpander:
				if _, ok := sm.(*JSONExpander); !ok {
					t.Errorf("expected %T to be *JSONExpander", sm)
				}
			}
		})
	}
}

func TestNoop_GetSecretValue(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	sm, err := NewNoop(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sm.GetSecretValue(ctx, "anything"); err == nil {
		t.Errorf("expected error")
	}
}

func TestFilesystem_GetSecretValue(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "aws-secret-key"), []byte("s3cr3t\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	sm, err := NewFilesystem(ctx, &Config{FilesystemRoot: root})
	if err != nil {
		t.Fatal(err)
	}

	got, err := sm.GetSecretValue(ctx, "aws-secret-key")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("s3cr3t", got); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	// Names cannot escape the root.
	if _, err := sm.GetSecretValue(ctx, "../../etc/passwd"); err == nil {
		t.Errorf("expected error reading outside of root")
	}
}
