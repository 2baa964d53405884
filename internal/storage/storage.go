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

// Package storage is an interface over object storage. Objects are written
// from a stream so archives never need to be held in memory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/osmroads/roads-export/pkg/logging"
)

// ErrNotFound is the error returned when an object does not exist.
var ErrNotFound = errors.New("storage object not found")

// ObjectInfo is the response metadata of a successful write.
type ObjectInfo struct {
	// Location is a backend specific URL of the object.
	Location string

	// ETag is the entity tag reported by the backend, if any.
	ETag string

	// VersionID is the object version or generation, if the bucket is
	// versioned.
	VersionID string
}

// Blobstore defines the minimum interface for a blob storage system.
type Blobstore interface {
	// CreateObject creates or overwrites an object in the storage system with
	// the contents read from body.
	CreateObject(ctx context.Context, bucket, key string, body io.Reader, contentType string) (*ObjectInfo, error)
}

// BlobstoreFor returns the blob store for the given type, or an error if one
// does not exist.
func BlobstoreFor(ctx context.Context, cfg *Config) (Blobstore, error) {
	logging.FromContext(ctx).Infow("configuring blobstore", "type", cfg.Type)

	switch cfg.Type {
	case BlobstoreTypeAWSS3:
		return NewAWSS3(ctx, &cfg.AWS)
	case BlobstoreTypeAzureBlobStorage:
		return NewAzureBlobstore(ctx, &cfg.Azure)
	case BlobstoreTypeGoogleCloudStorage:
		return NewGoogleCloudStorage(ctx)
	case BlobstoreTypeMinio:
		return NewMinio(ctx, &cfg.Minio)
	case BlobstoreTypeFilesystem:
		return NewFilesystemStorage(ctx)
	case BlobstoreTypeMemory:
		return NewMemory(ctx)
	case BlobstoreTypeNoop:
		return NewNoop(ctx)
	}

	return nil, fmt.Errorf("unknown blob store: %v", cfg.Type)
}
