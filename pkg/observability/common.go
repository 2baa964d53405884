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
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
)

var (
	// ResultTagKey contains a free format text describing the result of a
	// pipeline step. Preferably ALL CAPS WITH UNDERSCORE.
	ResultTagKey = tag.MustNewKey("result")

	// StageTagKey is the pipeline stage a measurement belongs to.
	StageTagKey = tag.MustNewKey("stage")
)

var (
	// ResultOK add a tag indicating the step succeeded.
	ResultOK = tag.Upsert(ResultTagKey, "OK")
	// ResultNotOK add a tag indicating the step failed.
	ResultNotOK = ResultError("NOT_OK")
)

// ResultError add a tag with the given string as the result.
func ResultError(result string) tag.Mutator {
	return tag.Upsert(ResultTagKey, result)
}

// Stage adds a tag with the given pipeline stage.
func Stage(stage string) tag.Mutator {
	return tag.Upsert(StageTagKey, stage)
}

// RecordLatency calculate and record the latency in milliseconds.
// Usage example:
//
//	func foo() {
//		defer RecordLatency(ctx, time.Now(), metric, tag1, tag2)
//		// remaining of the function body.
//	}
func RecordLatency(ctx context.Context, start time.Time, m *stats.Float64Measure, mutators ...tag.Mutator) {
	latency := float64(time.Since(start)) / float64(time.Millisecond)
	_ = stats.RecordWithTags(ctx, mutators, m.M(latency))
}
