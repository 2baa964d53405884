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
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/osmroads/roads-export/pkg/logging"
	"github.com/sethvargo/go-envconfig"
)

const (
	// SecretPrefix is the prefix, that if the value of an env var starts with
	// will be resolved through the configured secret store.
	SecretPrefix = "secret://"

	// FileSuffix is the suffix to use, if this secret path should be written to a file.
	// only interpreted on environment variable values that start w/ secret://
	FileSuffix = "?target=file"
)

// Resolver returns an envconfig mutator that fetches secrets from the secret
// manager. If the provided secret manager is nil, the function is nil.
// Otherwise it resolves values prefixed with secret://. Values separated by
// commas are processed as individual secrets.
func Resolver(sm SecretManager, config *Config) envconfig.MutatorFunc {
	if sm == nil {
		return nil
	}

	r := &secretResolver{
		sm:  sm,
		dir: config.SecretsDir,
	}

	return func(ctx context.Context, key, value string) (string, error) {
		vals := strings.Split(value, ",")
		for i, val := range vals {
			s, err := r.resolve(ctx, key, val)
			if err != nil {
				return "", err
			}
			vals[i] = s
		}
		return strings.Join(vals, ","), nil
	}
}

type secretResolver struct {
	sm  SecretManager
	dir string
}

// resolve resolves an individual secret reference. Plain values are returned
// unchanged.
func (r *secretResolver) resolve(ctx context.Context, envName, ref string) (string, error) {
	if !strings.HasPrefix(ref, SecretPrefix) {
		return ref, nil
	}
	ref = strings.TrimPrefix(ref, SecretPrefix)

	toFile := strings.HasSuffix(ref, FileSuffix)
	ref = strings.TrimSuffix(ref, FileSuffix)

	logging.FromContext(ctx).Infow("resolving secret",
		"env", envName,
		"to_file", toFile)

	val, err := r.sm.GetSecretValue(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", ref, err)
	}

	if !toFile {
		return val, nil
	}

	if err := r.ensureSecureDir(); err != nil {
		return "", err
	}

	pth := filepath.Join(r.dir, fmt.Sprintf("%x", sha1.Sum([]byte(envName+"."+ref)))) //nolint:gosec
	if err := os.WriteFile(pth, []byte(val), 0o600); err != nil {
		return "", fmt.Errorf("failed to write secret file for %q: %w", envName, err)
	}
	return pth, nil
}

// ensureSecureDir creates the secrets directory with 0700 permissions, or
// returns an error if it already exists with broader permissions.
func (r *secretResolver) ensureSecureDir() error {
	stat, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(r.dir, 0o700); err != nil {
			return fmt.Errorf("failed to create secure directory %q: %w", r.dir, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check if secure directory %q exists: %w", r.dir, err)
	}
	if stat.Mode().Perm() != os.FileMode(0o700) {
		return fmt.Errorf("secure directory %q exists and is not restricted %v", r.dir, stat.Mode())
	}
	return nil
}
