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

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Compile-time check to verify implements interface.
var _ Blobstore = (*AWSS3)(nil)

// AWSS3 implements the Blob interface and provides the ability
// write files to AWS S3.
type AWSS3 struct {
	uploader *s3manager.Uploader
}

// NewAWSS3 creates an AWS S3 client. Uploads are streamed in parts so the
// archive is never buffered whole.
func NewAWSS3(ctx context.Context, cfg *AWSConfig) (Blobstore, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, fmt.Errorf("both AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
		}
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(
			cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	uploader := s3manager.NewUploader(sess, func(u *s3manager.Uploader) {
		if cfg.PartSize > 0 {
			u.PartSize = cfg.PartSize
		}
	})

	return &AWSS3{
		uploader: uploader,
	}, nil
}

// CreateObject creates a new S3 object or overwrites an existing one.
func (s *AWSS3) CreateObject(ctx context.Context, bucket, key string, body io.Reader, contentType string) (*ObjectInfo, error) {
	input := &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	out, err := s.uploader.UploadWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("storage.CreateObject: %w", err)
	}

	return &ObjectInfo{
		Location:  out.Location,
		VersionID: aws.StringValue(out.VersionID),
	}, nil
}
