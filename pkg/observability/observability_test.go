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

package observability

import (
	"context"
	"testing"

	"go.opencensus.io/stats/view"
)

func TestNewFromEnv(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  *Config
		err  bool
	}{
		{
			name: "noop",
			cfg:  &Config{ExporterType: ExporterNoop},
		},
		{
			name: "ocagent_missing_config",
			cfg:  &Config{ExporterType: ExporterOCAgent},
			err:  true,
		},
		{
			name: "unknown",
			cfg:  &Config{ExporterType: "STACKDRIVER"},
			err:  true,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			exporter, err := NewFromEnv(tc.cfg)
			if (err != nil) != tc.err {
				t.Fatal(err)
			}
			if tc.err {
				return
			}

			if err := exporter.StartExporter(context.Background()); err != nil {
				t.Fatal(err)
			}
			if err := exporter.Close(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestAllViews_copy(t *testing.T) {
	t.Parallel()

	before := len(AllViews())
	views := AllViews()
	_ = append(views, &view.View{Name: "not/collected"})

	if got := len(AllViews()); got != before {
		t.Errorf("expected AllViews to return a copy, got %d views, want %d", got, before)
	}
}
