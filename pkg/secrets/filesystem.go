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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func init() {
	RegisterManager(string(SecretManagerTypeFilesystem), NewFilesystem)
}

// Compile-time check to verify implements interface.
var _ SecretManager = (*Filesystem)(nil)

// Filesystem is a local filesystem based secret manager. Each secret is a file
// under the root, which suits mounted Kubernetes or Docker secrets.
type Filesystem struct {
	root string
}

// NewFilesystem creates a new filesystem-based secret manager.
func NewFilesystem(ctx context.Context, cfg *Config) (SecretManager, error) {
	return &Filesystem{
		root: cfg.FilesystemRoot,
	}, nil
}

// GetSecretValue returns the contents of the secret file with trailing
// newlines removed.
func (sm *Filesystem) GetSecretValue(ctx context.Context, name string) (string, error) {
	pth := filepath.Join(sm.root, filepath.Clean("/"+name))
	b, err := os.ReadFile(pth)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
