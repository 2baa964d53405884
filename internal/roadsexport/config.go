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

// Package roadsexport exports OSM road tables as zipped ESRI Shapefiles and
// uploads them to object storage.
package roadsexport

import (
	"fmt"

	"github.com/osmroads/roads-export/internal/database"
	"github.com/osmroads/roads-export/internal/ogr"
	"github.com/osmroads/roads-export/internal/setup"
	"github.com/osmroads/roads-export/internal/storage"
	"github.com/osmroads/roads-export/pkg/observability"
	"github.com/osmroads/roads-export/pkg/secrets"
)

// Compile-time check to assert this config matches requirements.
var (
	_ setup.BlobstoreConfigProvider             = (*Config)(nil)
	_ setup.SecretManagerConfigProvider         = (*Config)(nil)
	_ setup.ObservabilityExporterConfigProvider = (*Config)(nil)
)

// FailurePolicy controls what happens to the rest of the batch when a job
// fails.
type FailurePolicy string

const (
	// FailurePolicyAbort stops at the first failed job.
	FailurePolicyAbort FailurePolicy = "ABORT"

	// FailurePolicyContinue runs every job and reports all failures.
	FailurePolicyContinue FailurePolicy = "CONTINUE"
)

// Config represents the configuration and associated environment variables
// for the export tool.
type Config struct {
	SecretManager         secrets.Config
	Storage               storage.Config
	ObservabilityExporter observability.Config
	Database              database.Config
	OGR                   ogr.Config

	ConfigFile    string        `env:"OSM_CONFIG, default=osm.toml"`
	WorkDir       string        `env:"WORK_DIR, default=."`
	Bucket        string        `env:"EXPORT_BUCKET, default=osm-roads-dumps"`
	FailurePolicy FailurePolicy `env:"FAILURE_POLICY, default=ABORT"`

	// AllCodes exports every ISO3 code of a table instead of only the first.
	AllCodes bool `env:"ALL_CODES, default=false"`

	// Preflight counts the matching rows before each export.
	Preflight bool `env:"PREFLIGHT, default=false"`
}

func (c *Config) BlobstoreConfig() *storage.Config {
	return &c.Storage
}

func (c *Config) SecretManagerConfig() *secrets.Config {
	return &c.SecretManager
}

func (c *Config) ObservabilityExporterConfig() *observability.Config {
	return &c.ObservabilityExporter
}

// Validate checks values that envconfig cannot.
func (c *Config) Validate() error {
	switch c.FailurePolicy {
	case FailurePolicyAbort, FailurePolicyContinue:
	default:
		return fmt.Errorf("FAILURE_POLICY must be %s or %s, got %q",
			FailurePolicyAbort, FailurePolicyContinue, c.FailurePolicy)
	}

	if c.Bucket == "" {
		return fmt.Errorf("EXPORT_BUCKET is required")
	}
	if c.WorkDir == "" {
		return fmt.Errorf("WORK_DIR is required")
	}
	return nil
}
