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

// Package archive packages an export directory into a zip file.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/osmroads/roads-export/pkg/logging"
)

// EntryMode is the permission recorded for every archive entry.
const EntryMode fs.FileMode = 0o755

// EntryTime is the modification time recorded for every archive entry, so
// the same input always produces the same bytes.
var EntryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Info describes a written archive.
type Info struct {
	Path    string
	Entries []string
	Bytes   int64
}

// ZipDir writes every regular file under srcDir into a zip archive at
// dstPath. Entry names are slash-separated paths relative to srcDir, in
// lexical order. Directories and non-regular files produce no entries.
// Entries are stored uncompressed.
//
// The archive is built in a temporary file next to dstPath and renamed into
// place on success. On error nothing is left at dstPath.
func ZipDir(ctx context.Context, srcDir, dstPath string) (*Info, error) {
	logger := logging.FromContext(ctx).Named("archive")

	st, err := os.Stat(srcDir)
	if err != nil {
		return nil, fmt.Errorf("archive.ZipDir: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("archive.ZipDir: %s is not a directory", srcDir)
	}

	f, err := os.CreateTemp(filepath.Dir(dstPath), "."+filepath.Base(dstPath)+".*")
	if err != nil {
		return nil, fmt.Errorf("archive.ZipDir: %w", err)
	}
	tmpPath := f.Name()

	// Closed and removed on every error path; after the rename the remove is a
	// no-op.
	closed := false
	defer func() {
		if !closed {
			if err := f.Close(); err != nil {
				logger.Debugw("failed to close temp archive", "error", err)
			}
		}
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			logger.Warnw("failed to remove temp archive", "path", tmpPath, "error", err)
		}
	}()

	zw := zip.NewWriter(f)
	entries, err := addDir(ctx, zw, srcDir, tmpPath)
	if err != nil {
		return nil, fmt.Errorf("archive.ZipDir: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive.ZipDir: unable to close archive: %w", err)
	}

	size, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("archive.ZipDir: %w", err)
	}

	closed = true
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("archive.ZipDir: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return nil, fmt.Errorf("archive.ZipDir: %w", err)
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		return nil, fmt.Errorf("archive.ZipDir: %w", err)
	}

	logger.Debugw("wrote archive", "path", dstPath, "entries", len(entries), "bytes", size)

	return &Info{
		Path:    dstPath,
		Entries: entries,
		Bytes:   size,
	}, nil
}

func addDir(ctx context.Context, zw *zip.Writer, srcDir, skip string) ([]string, error) {
	var entries []string

	err := filepath.WalkDir(srcDir, func(pth string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// Symlinks and other non-regular files are not archived.
		if !d.Type().IsRegular() || pth == skip {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, pth)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		if err := addFile(zw, pth, name); err != nil {
			return err
		}
		entries = append(entries, name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// addFile reads pth fully and writes it as a single entry. The buffer goes
// out of scope before the next file is read.
func addFile(zw *zip.Writer, pth, name string) error {
	b, err := os.ReadFile(pth)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", name, err)
	}

	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Modified: EntryTime,
	}
	hdr.SetMode(EntryMode)

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("unable to create zip entry for %s: %w", name, err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("unable to write %s to archive: %w", name, err)
	}
	return nil
}
