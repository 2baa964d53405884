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

package roadsexport

import (
	"github.com/osmroads/roads-export/internal/metrics"
	"github.com/osmroads/roads-export/pkg/observability"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

const metricPrefix = metrics.MetricRoot + "export"

var (
	mJobs         = stats.Int64(metricPrefix+"/jobs", "export jobs", stats.UnitDimensionless)
	mArchiveBytes = stats.Int64(metricPrefix+"/archive_bytes", "archive size", stats.UnitBytes)
	mStageLatency = stats.Float64(metricPrefix+"/stage_latency", "stage latency", stats.UnitMilliseconds)
	mEmptyExports = stats.Int64(metricPrefix+"/empty_exports", "preflight found no rows", stats.UnitDimensionless)
)

func init() {
	observability.CollectViews([]*view.View{
		{
			Name:        metricPrefix + "/jobs_count",
			Description: "Number of finished export jobs by last stage and result",
			Measure:     mJobs,
			TagKeys:     []tag.Key{observability.StageTagKey, observability.ResultTagKey},
			Aggregation: view.Count(),
		},
		{
			Name:        metricPrefix + "/archive_bytes_total",
			Description: "Total bytes of archives written",
			Measure:     mArchiveBytes,
			Aggregation: view.Sum(),
		},
		{
			Name:        metricPrefix + "/stage_latency",
			Description: "Distribution of stage latency in milliseconds",
			Measure:     mStageLatency,
			TagKeys:     []tag.Key{observability.StageTagKey, observability.ResultTagKey},
			Aggregation: view.Distribution(10, 50, 100, 500, 1000, 5000, 10000, 30000, 60000, 300000, 900000),
		},
		{
			Name:        metricPrefix + "/empty_exports_count",
			Description: "Number of exports whose filter matched no rows",
			Measure:     mEmptyExports,
			Aggregation: view.Count(),
		},
	}...)
}
