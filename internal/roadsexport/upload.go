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
	"os"

	"github.com/osmroads/roads-export/internal/storage"
	"github.com/osmroads/roads-export/pkg/logging"
)

// ContentType is the content type of uploaded archives.
const ContentType = "application/zip"

// Uploader streams archives to a bucket.
type Uploader struct {
	Blobstore storage.Blobstore
	Bucket    string
}

// Upload streams the job's archive to the bucket under the job's layer name.
// An existing object with the same key is replaced.
func (u *Uploader) Upload(ctx context.Context, job *TableJob) (*storage.ObjectInfo, error) {
	logger := logging.FromContext(ctx).Named("upload")

	f, err := os.Open(job.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	logger.Infow("uploading archive", "bucket", u.Bucket, "key", job.Layer)

	info, err := u.Blobstore.CreateObject(ctx, u.Bucket, job.Layer, f, ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s to %s: %w", job.Layer, u.Bucket, err)
	}

	logger.Infow("uploaded archive",
		"bucket", u.Bucket,
		"key", job.Layer,
		"location", info.Location,
		"etag", info.ETag,
		"version_id", info.VersionID)
	return info, nil
}
