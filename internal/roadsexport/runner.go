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
	"context"
	"fmt"
	"time"

	"github.com/osmroads/roads-export/internal/archive"
	"github.com/osmroads/roads-export/internal/database"
	"github.com/osmroads/roads-export/internal/ogr"
	"github.com/osmroads/roads-export/internal/osmconfig"
	"github.com/osmroads/roads-export/internal/serverenv"
	"github.com/osmroads/roads-export/internal/storage"
	"github.com/osmroads/roads-export/pkg/logging"
	"github.com/osmroads/roads-export/pkg/observability"

	"github.com/hashicorp/go-multierror"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
)

// Stage is a step of a job.
type Stage string

const (
	StagePreflight Stage = "PREFLIGHT"
	StageExport    Stage = "EXPORT"
	StageArchive   Stage = "ARCHIVE"
	StageUpload    Stage = "UPLOAD"
	StageDone      Stage = "DONE"
)

// Exporter produces the shapefile directory for a layer.
type Exporter interface {
	Export(ctx context.Context, req *ogr.Request) (*ogr.Result, error)
}

// RowCounter counts the rows an export would select.
type RowCounter interface {
	CountRows(ctx context.Context, schema, table, iso3 string) (int64, error)
}

// JobError is a failed job. It unwraps to the cause.
type JobError struct {
	Job   *TableJob
	Stage Stage
	Err   error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s (%s) failed at %s: %v", e.Job, e.Job.Layer, e.Stage, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// JobResult is the outcome of one job. Stage is the last stage reached; it is
// StageDone on success.
type JobResult struct {
	Job      *TableJob
	Stage    Stage
	Err      error
	Archive  *archive.Info
	Object   *storage.ObjectInfo
	Duration time.Duration
}

// Report summarizes a batch.
type Report struct {
	Results  []*JobResult
	Duration time.Duration
}

// Succeeded returns the number of jobs that reached StageDone.
func (r *Report) Succeeded() int {
	var n int
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of failed jobs.
func (r *Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Runner executes every job of the configuration file, one at a time.
type Runner struct {
	config *Config
	conf   *osmconfig.Config

	exporter Exporter
	uploader *Uploader

	// counter is opened on first use when preflight is enabled.
	counter RowCounter
	db      *database.DB
}

// NewRunner creates a runner from the environment config, the server env and
// the parsed configuration file.
func NewRunner(config *Config, env *serverenv.ServerEnv, conf *osmconfig.Config) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if env.Blobstore() == nil {
		return nil, fmt.Errorf("missing blobstore in server environment")
	}
	if conf == nil || conf.Connection == nil {
		return nil, fmt.Errorf("missing export configuration")
	}

	return &Runner{
		config:   config,
		conf:     conf,
		exporter: ogr.New(&config.OGR, config.WorkDir),
		uploader: &Uploader{
			Blobstore: env.Blobstore(),
			Bucket:    config.Bucket,
		},
	}, nil
}

// NewRunnerFromFile loads the configuration file named by config.ConfigFile and
// creates a runner for it. Nothing is exported when the file is invalid.
func NewRunnerFromFile(ctx context.Context, config *Config, env *serverenv.ServerEnv) (*Runner, error) {
	conf, err := osmconfig.Load(config.ConfigFile)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Infow("loaded configuration",
		"path", config.ConfigFile,
		"tables", len(conf.Order),
		"connection", conf.Connection.String())

	return NewRunner(config, env, conf)
}

// Run executes the batch. Job N+1 starts only after job N's upload returned.
//
// With FailurePolicyAbort the first failure stops the batch and is returned.
// With FailurePolicyContinue every job runs and all failures are returned
// together. Uploads that already succeeded are kept either way. The report
// is returned even when err is non-nil.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	logger := logging.FromContext(ctx).Named("roadsexport")
	start := time.Now()

	report := &Report{}
	defer func() {
		report.Duration = time.Since(start)
	}()
	defer r.close(ctx)

	jobs, err := Jobs(r.conf, r.config.WorkDir, r.config.AllCodes)
	if err != nil {
		return report, fmt.Errorf("failed to plan jobs: %w", err)
	}
	logger.Infow("starting batch",
		"jobs", len(jobs),
		"bucket", r.config.Bucket,
		"policy", r.config.FailurePolicy)

	var merr *multierror.Error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			logger.Warnw("batch interrupted", "remaining", len(jobs)-len(report.Results))
			merr = multierror.Append(merr, err)
			return report, merr.ErrorOrNil()
		}

		result := r.runJob(ctx, job)
		report.Results = append(report.Results, result)

		if result.Err == nil {
			continue
		}

		if r.config.FailurePolicy == FailurePolicyAbort {
			return report, result.Err
		}
		merr = multierror.Append(merr, result.Err)
	}

	logger.Infow("finished batch",
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"duration", time.Since(start))
	return report, merr.ErrorOrNil()
}

func (r *Runner) runJob(ctx context.Context, job *TableJob) *JobResult {
	logger := logging.FromContext(ctx).Named("roadsexport").With(
		"table", job.Table,
		"iso3", job.ISO3,
		"layer", job.Layer)
	ctx = logging.WithLogger(ctx, logger)

	start := time.Now()
	result := &JobResult{Job: job}

	fail := func(stage Stage, err error) *JobResult {
		result.Stage = stage
		result.Err = &JobError{Job: job, Stage: stage, Err: err}
		result.Duration = time.Since(start)
		recordJob(ctx, stage, false)
		logger.Errorw("job failed", "stage", stage, "error", err)
		return result
	}

	logger.Infow("starting job")

	if r.config.Preflight {
		if err := r.preflight(ctx, job); err != nil {
			return fail(StagePreflight, err)
		}
	}

	if err := r.timed(ctx, StageExport, func() error {
		_, err := r.exporter.Export(ctx, &ogr.Request{
			Layer:      job.Layer,
			Connection: r.conf.Connection.ConnectionString(),
			Query:      ogr.FilterQuery(r.conf.Connection.Schema, job.Table, job.ISO3),
		})
		return err
	}); err != nil {
		return fail(StageExport, err)
	}

	if err := r.timed(ctx, StageArchive, func() error {
		info, err := archive.ZipDir(ctx, job.OutputDir, job.ArchivePath)
		if err != nil {
			return err
		}
		result.Archive = info
		stats.Record(ctx, mArchiveBytes.M(info.Bytes))
		logger.Infow("archived layer", "path", info.Path, "entries", len(info.Entries), "bytes", info.Bytes)
		return nil
	}); err != nil {
		return fail(StageArchive, err)
	}

	if err := r.timed(ctx, StageUpload, func() error {
		obj, err := r.uploader.Upload(ctx, job)
		if err != nil {
			return err
		}
		result.Object = obj
		return nil
	}); err != nil {
		return fail(StageUpload, err)
	}

	result.Stage = StageDone
	result.Duration = time.Since(start)
	recordJob(ctx, StageDone, true)
	logger.Infow("finished job", "duration", result.Duration)
	return result
}

// preflight checks that the filter selects at least one row. An empty
// selection is only logged.
func (r *Runner) preflight(ctx context.Context, job *TableJob) error {
	return r.timed(ctx, StagePreflight, func() error {
		counter, err := r.rowCounter(ctx)
		if err != nil {
			return err
		}

		n, err := counter.CountRows(ctx, r.conf.Connection.Schema, job.Table, job.ISO3)
		if err != nil {
			return err
		}
		if n == 0 {
			stats.Record(ctx, mEmptyExports.M(1))
			logging.FromContext(ctx).Warnw("no rows match the export filter")
		}
		return nil
	})
}

func (r *Runner) rowCounter(ctx context.Context) (RowCounter, error) {
	if r.counter != nil {
		return r.counter, nil
	}

	db, err := database.NewFromDSN(ctx, r.conf.Connection.DSN(), &r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	r.counter = db
	return db, nil
}

func (r *Runner) close(ctx context.Context) {
	if r.db != nil {
		r.db.Close(ctx)
		r.db = nil
		r.counter = nil
	}
}

// timed runs fn and records its latency under stage.
func (r *Runner) timed(ctx context.Context, stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()

	result := observability.ResultOK
	if err != nil {
		result = observability.ResultNotOK
	}
	observability.RecordLatency(ctx, start, mStageLatency, observability.Stage(string(stage)), result)
	return err
}

func recordJob(ctx context.Context, stage Stage, ok bool) {
	result := observability.ResultOK
	if !ok {
		result = observability.ResultNotOK
	}
	_ = stats.RecordWithTags(ctx, []tag.Mutator{observability.Stage(string(stage)), result}, mJobs.M(1))
}
