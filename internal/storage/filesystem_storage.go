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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Compile-time check to verify implements interface.
var _ Blobstore = (*FilesystemStorage)(nil)

// FilesystemStorage implements Blobstore and provides the ability
// write files to the filesystem. The bucket is a directory.
type FilesystemStorage struct{}

// NewFilesystemStorage creates a Blobsstore compatible storage for the
// filesystem.
func NewFilesystemStorage(ctx context.Context) (Blobstore, error) {
	return &FilesystemStorage{}, nil
}

// CreateObject creates a new file or overwrites an existing one. The file is
// written under a temporary name and renamed, so readers never observe a
// partial object.
func (s *FilesystemStorage) CreateObject(ctx context.Context, folder, filename string, body io.Reader, _ string) (*ObjectInfo, error) {
	pth := filepath.Join(folder, filename)

	f, err := os.CreateTemp(folder, "."+filepath.Base(filename)+".*")
	if err != nil {
		return nil, fmt.Errorf("storage.CreateObject: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return nil, fmt.Errorf("storage.CreateObject: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("storage.CreateObject: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return nil, fmt.Errorf("storage.CreateObject: %w", err)
	}
	if err := os.Rename(tmp, pth); err != nil {
		return nil, fmt.Errorf("storage.CreateObject: %w", err)
	}

	abs, err := filepath.Abs(pth)
	if err != nil {
		abs = pth
	}
	return &ObjectInfo{
		Location: "file://" + filepath.ToSlash(abs),
	}, nil
}
