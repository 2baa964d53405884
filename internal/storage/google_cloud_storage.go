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
	"strconv"

	"cloud.google.com/go/storage"
)

// Compile-time check to verify implements interface.
var _ Blobstore = (*GoogleCloudStorage)(nil)

// GoogleCloudStorage implements the Blob interface and provides the ability
// write files to Google Cloud Storage.
type GoogleCloudStorage struct {
	client *storage.Client
}

// NewGoogleCloudStorage creates a Google Cloud Storage Client using
// application default credentials.
func NewGoogleCloudStorage(ctx context.Context) (Blobstore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GoogleCloudStorage{client}, nil
}

// CreateObject creates a new cloud storage object or overwrites an existing one.
func (gcs *GoogleCloudStorage) CreateObject(ctx context.Context, bucket, key string, body io.Reader, contentType string) (*ObjectInfo, error) {
	wc := gcs.client.Bucket(bucket).Object(key).NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := io.Copy(wc, body); err != nil {
		// Closing the writer aborts the upload.
		_ = wc.Close()
		return nil, fmt.Errorf("storage.Writer.Write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return nil, fmt.Errorf("storage.Writer.Close: %w", err)
	}

	info := &ObjectInfo{
		Location: fmt.Sprintf("gs://%s/%s", bucket, key),
	}
	if attrs := wc.Attrs(); attrs != nil {
		info.ETag = attrs.Etag
		info.VersionID = strconv.FormatInt(attrs.Generation, 10)
	}
	return info, nil
}
