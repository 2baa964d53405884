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

// This package is the batch tool that exports OSM road tables as zipped
// shapefiles and uploads them to object storage.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/osmroads/roads-export/internal/buildinfo"
	"github.com/osmroads/roads-export/internal/roadsexport"
	"github.com/osmroads/roads-export/internal/setup"
	"github.com/osmroads/roads-export/pkg/logging"
)

func main() {
	ctx, done := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)

	logger := logging.NewLoggerFromEnv().
		With("build_id", buildinfo.RoadsExport.ID()).
		With("build_tag", buildinfo.RoadsExport.Tag()).
		With("run_id", uuid.New().String())
	ctx = logging.WithLogger(ctx, logger)

	defer func() {
		done()
		if r := recover(); r != nil {
			logger.Fatalw("application panic", "panic", r)
		}
	}()

	err := realMain(ctx)
	done()

	if err != nil {
		logger.Fatal(err)
	}
	logger.Info("successful shutdown")
}

func realMain(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	var config roadsexport.Config
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer func() {
		if err := env.Close(ctx); err != nil {
			logger.Errorw("failed to close environment", "error", err)
		}
	}()

	runner, err := roadsexport.NewRunnerFromFile(ctx, &config, env)
	if err != nil {
		return fmt.Errorf("roadsexport.NewRunnerFromFile: %w", err)
	}

	report, err := runner.Run(ctx)
	logger.Infow("export report",
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"duration", report.Duration)
	if err != nil {
		return fmt.Errorf("roadsexport.Run: %w", err)
	}
	return nil
}
