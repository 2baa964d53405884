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

// Package setup provides common logic for configuring the various services.
package setup

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/osmroads/roads-export/internal/serverenv"
	"github.com/osmroads/roads-export/internal/storage"
	"github.com/osmroads/roads-export/pkg/logging"
	"github.com/osmroads/roads-export/pkg/observability"
	"github.com/osmroads/roads-export/pkg/secrets"
	"github.com/sethvargo/go-envconfig"
)

// BlobstoreConfigProvider provides the information about current storage
// configuration.
type BlobstoreConfigProvider interface {
	BlobstoreConfig() *storage.Config
}

// SecretManagerConfigProvider signals that the config knows how to configure
// a secret manager.
type SecretManagerConfigProvider interface {
	SecretManagerConfig() *secrets.Config
}

// ObservabilityExporterConfigProvider signals that the config knows how to
// configure an observability exporter.
type ObservabilityExporterConfigProvider interface {
	ObservabilityExporterConfig() *observability.Config
}

// newObservabilityExporter is swapped out in tests.
var newObservabilityExporter = observability.NewFromEnv

// Setup runs common initialization code for all binaries. It reads the
// process environment.
func Setup(ctx context.Context, config interface{}) (*serverenv.ServerEnv, error) {
	return SetupWith(ctx, config, envconfig.OsLookuper())
}

// SetupWith processes the given configuration using envconfig. It is
// responsible for establishing the secret manager, resolving secret://
// references, the blobstore and the observability exporter. The caller must
// Close the returned ServerEnv. On error, anything already started is closed.
func SetupWith(ctx context.Context, config interface{}, l envconfig.Lookuper) (_ *serverenv.ServerEnv, retErr error) {
	logger := logging.FromContext(ctx)

	var closers []io.Closer
	defer func() {
		if retErr == nil {
			return
		}
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				retErr = multierror.Append(retErr, fmt.Errorf("cleanup: %w", err))
			}
		}
	}()

	// Build a list of mutators. The secret manager must be configured first
	// since other values may reference it.
	var mutatorFuncs []envconfig.MutatorFunc

	var serverEnvOpts []serverenv.Option

	if provider, ok := config.(SecretManagerConfigProvider); ok {
		logger.Debugw("configuring secret manager")

		smConfig := provider.SecretManagerConfig()
		if err := envconfig.ProcessWith(ctx, smConfig, l); err != nil {
			return nil, fmt.Errorf("unable to process secret manager env: %w", err)
		}

		sm, err := secrets.SecretManagerFor(ctx, smConfig)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to secret manager: %w", err)
		}

		if c, ok := sm.(io.Closer); ok {
			closers = append(closers, c)
		}

		mutatorFuncs = append(mutatorFuncs, secrets.Resolver(sm, smConfig))
		serverEnvOpts = append(serverEnvOpts, serverenv.WithSecretManager(sm))

		logger.Infow("secret manager", "config", smConfig.Type)
	}

	if err := envconfig.ProcessWith(ctx, config, l, mutatorFuncs...); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}
	logger.Debugw("loaded configuration")

	if provider, ok := config.(ObservabilityExporterConfigProvider); ok {
		logger.Debugw("configuring observability exporter")

		oeConfig := provider.ObservabilityExporterConfig()
		oe, err := newObservabilityExporter(oeConfig)
		if err != nil {
			return nil, fmt.Errorf("unable to create ObservabilityExporter provider: %w", err)
		}
		closers = append(closers, oe)
		if err := oe.StartExporter(ctx); err != nil {
			return nil, fmt.Errorf("observability exporter: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, serverenv.WithObservabilityExporter(oe))

		logger.Infow("observability", "exporter", oeConfig.ExporterType)
	}

	if provider, ok := config.(BlobstoreConfigProvider); ok {
		logger.Debugw("configuring blobstore")

		bsConfig := provider.BlobstoreConfig()
		blobStore, err := storage.BlobstoreFor(ctx, bsConfig)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to storage system: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, serverenv.WithBlobStorage(blobStore))
	}

	return serverenv.New(ctx, serverEnvOpts...), nil
}
