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


package storage

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/osmroads/roads-export/internal/project"
)

// s3Server is a minimal S3 endpoint that accepts single PUTs and multipart
// uploads for any bucket and key.
type s3Server struct {
	lock     sync.Mutex
	requests []string
	sizes    []int64
}

func (s *s3Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	size := int64(len(body))
	if v := r.Header.Get("X-Amz-Decoded-Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			size = n
		}
	}

	q := r.URL.Query()
	var kind string
	switch {
	case r.Method == http.MethodPost && q.Has("uploads"):
		kind = "initiate"
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>`+
			`<InitiateMultipartUploadResult><Bucket>osm-roads-dumps</Bucket><Key>%s</Key><UploadId>upload-1</UploadId></InitiateMultipartUploadResult>`,
			strings.TrimPrefix(r.URL.Path, "/osm-roads-dumps/"))
	case r.Method == http.MethodPut && q.Get("uploadId") != "":
		kind = "part"
		w.Header().Set("ETag", `"part-`+q.Get("partNumber")+`"`)
	case r.Method == http.MethodPost && q.Get("uploadId") != "":
		kind = "complete"
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>`+
			`<CompleteMultipartUploadResult><Bucket>osm-roads-dumps</Bucket><ETag>"multipart-etag"</ETag></CompleteMultipartUploadResult>`)
	case r.Method == http.MethodPut:
		kind = "put"
		w.Header().Set("ETag", `"object-etag"`)
	default:
		http.Error(w, "unexpected request", http.StatusBadRequest)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.requests = append(s.requests, kind+" "+r.URL.Path)
	if kind == "put" || kind == "part" {
		s.sizes = append(s.sizes, size)
	}
}

func (s *s3Server) recorded() ([]string, []int64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.requests...), append([]int64(nil), s.sizes...)
}

func testMinio(tb testing.TB) (*Minio, *s3Server, string) {
	tb.Helper()

	stub := &s3Server{}
	srv := httptest.NewServer(stub)
	tb.Cleanup(srv.Close)

	bs, err := NewMinio(project.TestContext(tb), &MinioConfig{
		Endpoint:        strings.TrimPrefix(srv.URL, "http://"),
		AccessKeyID:     "access",
		SecretAccessKey: "secret",
		Region:          "eu-west-2",
	})
	if err != nil {
		tb.Fatal(err)
	}
	return bs.(*Minio), stub, srv.URL
}

func TestMinio_CreateObject_knownSize(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	m, stub, url := testMinio(t)

	body := strings.Repeat("z", 1024)
	info, err := m.CreateObject(ctx, "osm-roads-dumps", "bra_trs_roads_osm", strings.NewReader(body), "application/zip")
	if err != nil {
		t.Fatal(err)
	}

	requests, sizes := stub.recorded()
	if diff := cmp.Diff([]string{"put /osm-roads-dumps/bra_trs_roads_osm"}, requests); diff != "" {
		t.Errorf("requests mismatch (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{1024}, sizes); diff != "" {
		t.Errorf("sizes mismatch (-want, +got):\n%s", diff)
	}
	if got, want := info.ETag, "object-etag"; got != want {
		t.Errorf("expected %q to be %q", got, want)
	}
	if got, want := info.Location, url+"/osm-roads-dumps/bra_trs_roads_osm"; got != want {
		t.Errorf("expected %q to be %q", got, want)
	}
}

func TestMinio_CreateObject_file(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	m, stub, _ := testMinio(t)

	pth := filepath.Join(t.TempDir(), "ken_trs_roads_osm.zip")
	if err := os.WriteFile(pth, []byte(strings.Repeat("k", 2048)), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(pth)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := m.CreateObject(ctx, "osm-roads-dumps", "ken_trs_roads_osm", f, "application/zip"); err != nil {
		t.Fatal(err)
	}

	requests, sizes := stub.recorded()
	if diff := cmp.Diff([]string{"put /osm-roads-dumps/ken_trs_roads_osm"}, requests); diff != "" {
		t.Errorf("requests mismatch (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{2048}, sizes); diff != "" {
		t.Errorf("sizes mismatch (-want, +got):\n%s", diff)
	}
}

// Not parallel, so the allocation count only covers this upload.
func TestMinio_CreateObject_unknownSize(t *testing.T) {
	ctx := project.TestContext(t)
	m, stub, _ := testMinio(t)

	body := io.MultiReader(strings.NewReader(strings.Repeat("a", 512)), strings.NewReader(strings.Repeat("b", 512)))

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	info, err := m.CreateObject(ctx, "osm-roads-dumps", "bra_trs_roads_osm", body, "application/zip")
	runtime.ReadMemStats(&after)
	if err != nil {
		t.Fatal(err)
	}

	requests, sizes := stub.recorded()
	want := []string{
		"initiate /osm-roads-dumps/bra_trs_roads_osm",
		"part /osm-roads-dumps/bra_trs_roads_osm",
		"complete /osm-roads-dumps/bra_trs_roads_osm",
	}
	if diff := cmp.Diff(want, requests); diff != "" {
		t.Errorf("requests mismatch (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{1024}, sizes); diff != "" {
		t.Errorf("sizes mismatch (-want, +got):\n%s", diff)
	}
	if got, want := info.ETag, "multipart-etag"; got != want {
		t.Errorf("expected %q to be %q", got, want)
	}

	if got, limit := after.TotalAlloc-before.TotalAlloc, uint64(64<<20); got > limit {
		t.Errorf("upload of 1 KiB allocated %d bytes, want at most %d", got, limit)
	}
}

func TestReaderSize(t *testing.T) {
	t.Parallel()

	pth := filepath.Join(t.TempDir(), "archive.zip")
	if err := os.WriteFile(pth, []byte("0123456789"), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(pth)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	if _, err := f.Seek(4, io.SeekStart); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		r    io.Reader
		want int64
	}{
		{name: "strings", r: strings.NewReader("abc"), want: 3},
		{name: "file_offset", r: f, want: 6},
		{name: "stream", r: io.MultiReader(strings.NewReader("abc")), want: -1},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := readerSize(tc.r); got != tc.want {
				t.Errorf("expected %d to be %d", got, tc.want)
			}
		})
	}
}
