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
	"io/fs"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Compile-time check to verify implements interface.
var _ Blobstore = (*Minio)(nil)

// unknownSizePartSize bounds the part buffer for bodies of unknown length.
// Without it the client sizes parts for a 5 TiB object.
const unknownSizePartSize = 5 << 20

// Minio implements Blobstore for S3-compatible servers.
type Minio struct {
	client *minio.Client
}

// NewMinio creates a client for the configured endpoint.
func NewMinio(ctx context.Context, cfg *MinioConfig) (Blobstore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("missing MINIO_ENDPOINT")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio.New: %w", err)
	}

	return &Minio{
		client: client,
	}, nil
}

// CreateObject streams body to the bucket. Files and in-memory readers are
// sent with their length; anything else is uploaded in 5 MiB parts.
func (s *Minio) CreateObject(ctx context.Context, bucket, key string, body io.Reader, contentType string) (*ObjectInfo, error) {
	size := readerSize(body)
	opts := minio.PutObjectOptions{
		ContentType: contentType,
	}
	if size < 0 {
		opts.PartSize = unknownSizePartSize
	}

	info, err := s.client.PutObject(ctx, bucket, key, body, size, opts)
	if err != nil {
		return nil, fmt.Errorf("storage.CreateObject: %w", err)
	}

	location := info.Location
	if location == "" {
		u := s.client.EndpointURL()
		location = fmt.Sprintf("%s://%s/%s/%s", u.Scheme, u.Host, bucket, key)
	}

	return &ObjectInfo{
		Location:  location,
		ETag:      info.ETag,
		VersionID: info.VersionID,
	}, nil
}

// readerSize returns the number of bytes left in r, or -1 if that cannot be
// determined without reading it.
func readerSize(r io.Reader) int64 {
	switch v := r.(type) {
	case interface{ Len() int }:
		return int64(v.Len())
	case interface{ Stat() (fs.FileInfo, error) }:
		info, err := v.Stat()
		if err != nil || !info.Mode().IsRegular() {
			return -1
		}
		size := info.Size()
		if seeker, ok := r.(io.Seeker); ok {
			offset, err := seeker.Seek(0, io.SeekCurrent)
			if err != nil {
				return -1
			}
			size -= offset
		}
		if size < 0 {
			return -1
		}
		return size
	}
	return -1
}
