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
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/osmroads/roads-export/internal/ogr"
	"github.com/osmroads/roads-export/internal/project"
	"github.com/osmroads/roads-export/internal/storage"
)

func testContext(tb testing.TB) context.Context {
	return project.TestContext(tb)
}

func newMemory(tb testing.TB) *storage.Memory {
	tb.Helper()

	bs, err := storage.NewMemory(context.Background())
	if err != nil {
		tb.Fatal(err)
	}
	return bs.(*storage.Memory)
}

// fakeExporter writes a small shapefile directory for each request instead of
// running ogr2ogr.
type fakeExporter struct {
	dir  string
	fail map[string]error

	lock  sync.Mutex
	calls []*ogr.Request
}

func (e *fakeExporter) Export(_ context.Context, req *ogr.Request) (*ogr.Result, error) {
	e.lock.Lock()
	e.calls = append(e.calls, req)
	e.lock.Unlock()

	if err := e.fail[req.Layer]; err != nil {
		return nil, err
	}

	out := filepath.Join(e.dir, req.Layer)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, err
	}
	for _, ext := range []string{".shp", ".dbf", ".shx"} {
		if err := os.WriteFile(filepath.Join(out, req.Layer+ext), []byte(req.Query), 0o644); err != nil {
			return nil, err
		}
	}
	return &ogr.Result{Layer: req.Layer, OutputDir: out}, nil
}

func (e *fakeExporter) layers() []string {
	e.lock.Lock()
	defer e.lock.Unlock()

	out := make([]string, 0, len(e.calls))
	for _, c := range e.calls {
		out = append(out, c.Layer)
	}
	return out
}

// failingBlobstore fails every upload.
type failingBlobstore struct{}

func (failingBlobstore) CreateObject(_ context.Context, bucket, key string, body io.Reader, _ string) (*storage.ObjectInfo, error) {
	return nil, fmt.Errorf("bucket %s unavailable", bucket)
}

// fakeCounter returns fixed counts per table.
type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (c *fakeCounter) CountRows(_ context.Context, schema, table, iso3 string) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	return c.counts[table], nil
}

// eventLog records export and upload calls in the order they return.
type eventLog struct {
	lock   sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) list() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]string(nil), l.events...)
}

type loggingExporter struct {
	Exporter
	log *eventLog
}

func (e *loggingExporter) Export(ctx context.Context, req *ogr.Request) (*ogr.Result, error) {
	defer e.log.add("export " + req.Layer)
	return e.Exporter.Export(ctx, req)
}

type loggingBlobstore struct {
	storage.Blobstore
	log  *eventLog
	fail map[string]error
}

func (b *loggingBlobstore) CreateObject(ctx context.Context, bucket, key string, body io.Reader, contentType string) (*storage.ObjectInfo, error) {
	defer b.log.add("upload " + key)
	if err := b.fail[key]; err != nil {
		return nil, err
	}
	return b.Blobstore.CreateObject(ctx, bucket, key, body, contentType)
}
