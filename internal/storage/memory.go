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
	"path"
	"sync"
)

// Compile-time check to verify implements interface.
var _ Blobstore = (*Memory)(nil)

// Memory implements Blobstore and provides the ability write files to
// memory.
type Memory struct {
	lock sync.Mutex
	data map[string][]byte
}

// NewMemory creates a Blobstore that writes data in memory.
func NewMemory(_ context.Context) (Blobstore, error) {
	return &Memory{
		data: make(map[string][]byte),
	}, nil
}

// CreateObject creates a new object.
func (s *Memory) CreateObject(_ context.Context, bucket, key string, body io.Reader, _ string) (*ObjectInfo, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("storage.CreateObject: %w", err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	pth := path.Join(bucket, key)
	s.data[pth] = b
	return &ObjectInfo{
		Location: "memory://" + pth,
	}, nil
}

// GetObject returns the contents for the given object. If the object does not
// exist, it returns ErrNotFound.
func (s *Memory) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	v, ok := s.data[path.Join(bucket, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Len returns the number of stored objects.
func (s *Memory) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.data)
}
