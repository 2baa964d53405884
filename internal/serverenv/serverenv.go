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

// Package serverenv defines common parameters for the runtime environment of
// the export tool.
package serverenv

import (
	"context"
	"fmt"
	"io"

	"github.com/osmroads/roads-export/internal/storage"
	"github.com/osmroads/roads-export/pkg/observability"
	"github.com/osmroads/roads-export/pkg/secrets"
)

// ServerEnv represents latent environment configuration for the export tool.
type ServerEnv struct {
	blobstore             storage.Blobstore
	secretManager         secrets.SecretManager
	observabilityExporter observability.Exporter
}

// Option defines function types to modify the ServerEnv on creation.
type Option func(*ServerEnv) *ServerEnv

// New creates a new ServerEnv with the requested options.
func New(ctx context.Context, opts ...Option) *ServerEnv {
	env := &ServerEnv{}

	for _, f := range opts {
		env = f(env)
	}

	return env
}

// WithBlobStorage creates an Option to install a specific Blobstore
// implementation.
func WithBlobStorage(b storage.Blobstore) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.blobstore = b
		return s
	}
}

// WithSecretManager creates an Option to install a specific secret manager.
func WithSecretManager(sm secrets.SecretManager) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.secretManager = sm
		return s
	}
}

// WithObservabilityExporter creates an Option to install a specific
// observability exporter.
func WithObservabilityExporter(oe observability.Exporter) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.observabilityExporter = oe
		return s
	}
}

func (s *ServerEnv) Blobstore() storage.Blobstore {
	return s.blobstore
}

func (s *ServerEnv) SecretManager() secrets.SecretManager {
	return s.secretManager
}

func (s *ServerEnv) ObservabilityExporter() observability.Exporter {
	return s.observabilityExporter
}

// Close shuts down the server env, flushing any buffered metrics.
func (s *ServerEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	if s.observabilityExporter != nil {
		if err := s.observabilityExporter.Close(); err != nil {
			return fmt.Errorf("failed to close observability exporter: %w", err)
		}
	}

	if c, ok := s.secretManager.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close secret manager: %w", err)
		}
	}

	return nil
}
