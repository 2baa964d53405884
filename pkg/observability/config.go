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

// Package observability sets up and configures observability tools.
package observability

import "time"

// ExporterType represents a type of observability exporter.
type ExporterType string

const (
	ExporterOCAgent ExporterType = "OCAGENT"
	ExporterNoop    ExporterType = "NOOP"
)

// Config holds all of the configuration options for the observability exporter
type Config struct {
	ExporterType ExporterType `env:"OBSERVABILITY_EXPORTER, default=NOOP"`

	OpenCensus *OpenCensusConfig
}

// OpenCensusConfig holds the configuration options for the open census exporter
type OpenCensusConfig struct {
	SampleRate float64 `env:"TRACE_PROBABILITY, default=0.40"`

	Insecure bool   `env:"OCAGENT_INSECURE"`
	Endpoint string `env:"OCAGENT_TRACE_EXPORTER_ENDPOINT"`

	// ReportingInterval is how often view data is pushed. Batch runs are
	// short, so this is lower than the opencensus default.
	ReportingInterval time.Duration `env:"OCAGENT_REPORTING_INTERVAL, default=5s"`
}
