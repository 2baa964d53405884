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

// Package ogr runs the GDAL ogr2ogr tool to dump a filtered PostgreSQL query
// to an ESRI Shapefile layer.
package ogr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/osmroads/roads-export/pkg/logging"
)

// Format is the OGR driver used for every export.
const Format = "ESRI Shapefile"

// stderrTail bounds how much of ogr2ogr's stderr is kept for error messages.
const stderrTail = 2048

var (
	// ErrExportFailed is wrapped by every ExitError.
	ErrExportFailed = errors.New("ogr2ogr failed")

	// ErrNotFound is returned when the ogr2ogr executable cannot be found.
	ErrNotFound = errors.New("ogr2ogr not found")
)

// ExitError is returned when ogr2ogr exits with a non-zero status.
type ExitError struct {
	Layer    string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("ogr2ogr exited with status %d for layer %s", e.ExitCode, e.Layer)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return ErrExportFailed
}

// Request is a single export.
type Request struct {
	// Layer is both the output name and the -nln layer name.
	Layer string

	// Connection is the OGR datasource string, e.g. "PG:dbname='gis' ...".
	Connection string

	// Query is the SQL passed with -sql.
	Query string
}

// Result describes a finished export.
type Result struct {
	Layer     string
	OutputDir string
	ExitCode  int
	Duration  time.Duration
}

// Exporter runs ogr2ogr in Dir. Output is relayed to Stdout and Stderr
// unmodified.
type Exporter struct {
	Path   string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// New creates an Exporter that writes its layers under dir.
func New(cfg *Config, dir string) *Exporter {
	path := cfg.Path
	if path == "" {
		path = "ogr2ogr"
	}
	return &Exporter{
		Path:   path,
		Dir:    dir,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// FilterQuery builds the query selecting one country's rows from a table.
// The inputs are interpolated as-is and must be validated by the caller.
func FilterQuery(schema, table, iso3 string) string {
	return fmt.Sprintf("SELECT * FROM %s.%s WHERE iso3 = '%s'", schema, table, iso3)
}

// Args returns the ogr2ogr arguments for exporting query into layer.
func Args(layer, conn, query string) []string {
	return []string{
		"-f", Format,
		layer,
		conn,
		"-sql", query,
		"-nln", layer,
	}
}

// Export runs ogr2ogr synchronously. The output directory is Dir/Layer.
func (e *Exporter) Export(ctx context.Context, req *Request) (*Result, error) {
	logger := logging.FromContext(ctx).Named("ogr").With("layer", req.Layer)

	if req.Layer == "" {
		return nil, fmt.Errorf("ogr.Export: missing layer")
	}

	var tail bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Path, Args(req.Layer, req.Connection, req.Query)...)
	cmd.Dir = e.Dir
	cmd.Stdout = writerOrDiscard(e.Stdout)
	cmd.Stderr = io.MultiWriter(writerOrDiscard(e.Stderr), &tail)

	logger.Debugw("running ogr2ogr", "path", e.Path, "query", req.Query)

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Layer:     req.Layer,
		OutputDir: filepath.Join(e.Dir, req.Layer),
		Duration:  time.Since(start),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return result, fmt.Errorf("ogr.Export: %w: %s", ErrNotFound, e.Path)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, fmt.Errorf("ogr.Export: %w", ctxErr)
			}
			return result, &ExitError{
				Layer:    req.Layer,
				ExitCode: result.ExitCode,
				Stderr:   lastLine(tail.Bytes()),
			}
		}
		return result, fmt.Errorf("ogr.Export: %w", err)
	}

	logger.Debugw("ogr2ogr finished", "duration", result.Duration)
	return result, nil
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// lastLine returns the last non-empty line of b, truncated.
func lastLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	if len(s) > stderrTail {
		s = s[len(s)-stderrTail:]
	}
	return strings.TrimSpace(s)
}
