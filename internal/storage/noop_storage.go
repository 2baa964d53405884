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
)

// Compile-time check to verify implements.
var _ Blobstore = (*Noop)(nil)

// Noop is a blobstore that discards everything it is given. It is useful for
// dry runs of the export.
type Noop struct{}

func NewNoop(ctx context.Context) (Blobstore, error) {
	return &Noop{}, nil
}

func (s *Noop) CreateObject(_ context.Context, bucket, key string, body io.Reader, _ string) (*ObjectInfo, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return nil, fmt.Errorf("storage.CreateObject: %w", err)
	}
	return &ObjectInfo{}, nil
}
