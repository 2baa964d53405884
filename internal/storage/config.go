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

// BlobstoreType defines a specific blobstore.
type BlobstoreType string

const (
	BlobstoreTypeAWSS3              BlobstoreType = "AWS_S3"
	BlobstoreTypeAzureBlobStorage   BlobstoreType = "AZURE_BLOB_STORAGE"
	BlobstoreTypeGoogleCloudStorage BlobstoreType = "GOOGLE_CLOUD_STORAGE"
	BlobstoreTypeMinio              BlobstoreType = "MINIO"
	BlobstoreTypeFilesystem         BlobstoreType = "FILESYSTEM"
	BlobstoreTypeMemory             BlobstoreType = "MEMORY"
	BlobstoreTypeNoop               BlobstoreType = "NOOP"
)

// Config defines the configuration for a blobstore. Credentials are never
// part of the defaults; they come from the environment, the provider's
// default credential chain, or secret:// references.
type Config struct {
	Type BlobstoreType `env:"BLOBSTORE, default=AWS_S3"`

	AWS   AWSConfig
	Azure AzureConfig
	Minio MinioConfig
}

// AWSConfig configures the AWS_S3 blobstore. When the access key is empty,
// the AWS SDK default credential chain is used (environment, shared
// credentials file, instance role).
type AWSConfig struct {
	Region          string `env:"AWS_REGION, default=eu-west-2"`
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	SessionToken    string `env:"AWS_SESSION_TOKEN"`

	// PartSize is the multipart upload part size in bytes.
	PartSize int64 `env:"AWS_S3_PART_SIZE, default=5242880"`
}

// AzureConfig configures the AZURE_BLOB_STORAGE blobstore. Without an
// access key a managed identity is used.
type AzureConfig struct {
	AccountName string `env:"AZURE_STORAGE_ACCOUNT"`
	AccessKey   string `env:"AZURE_STORAGE_ACCESS_KEY"`
}

// MinioConfig configures the MINIO blobstore, used for S3-compatible
// endpoints.
type MinioConfig struct {
	Endpoint        string `env:"MINIO_ENDPOINT"`
	AccessKeyID     string `env:"MINIO_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"MINIO_SECRET_ACCESS_KEY"`
	Region          string `env:"MINIO_REGION"`
	UseSSL          bool   `env:"MINIO_SSL, default=true"`
}
