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
	"net/url"
	"time"

	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/Azure/go-autorest/autorest/adal"
	"github.com/osmroads/roads-export/pkg/logging"
	"go.opencensus.io/stats"
)

const (
	azureUploadBufferSize = 4 * 1024 * 1024
	azureUploadMaxBuffers = 4
)

// Compile-time check to verify implements interface.
var _ Blobstore = (*AzureBlobstore)(nil)

// AzureBlobstore implements the Blob interface and provides the ability
// write files to Azure Blob Storage.
type AzureBlobstore struct {
	serviceURL *azblob.ServiceURL
}

func newAccessTokenCredential(accountName string, accountKey string) (azblob.Credential, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("storage.newAccessTokenCredential: %w", err)
	}
	return credential, nil
}

func newMSITokenCredential(ctx context.Context, blobstoreURL string) (azblob.Credential, error) {
	logger := logging.FromContext(ctx).Named("azure")

	msiEndpoint, err := adal.GetMSIVMEndpoint()
	if err != nil {
		return nil, fmt.Errorf("failed to get MSI endpoint: %w", err)
	}

	spt, err := adal.NewServicePrincipalTokenFromMSI(msiEndpoint, blobstoreURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get service principal token from msi %v: %w", msiEndpoint, err)
	}

	tokenRefresher := func(credential azblob.TokenCredential) time.Duration {
		if err := spt.Refresh(); err != nil {
			logger.Errorw("failed to refresh access token", "error", err)
			stats.Record(context.Background(), mAzureRefreshFailed.M(1))
			return 0
		}

		token := spt.Token()
		credential.SetToken(token.AccessToken)

		exp := token.Expires().UTC().Sub(time.Now().UTC().Add(2 * time.Minute))
		if exp <= 0 {
			stats.Record(context.Background(), mAzureRefreshExpired.M(1))
		}
		return exp
	}

	return azblob.NewTokenCredential("", tokenRefresher), nil
}

// NewAzureBlobstore creates a storage client for the configured account.
func NewAzureBlobstore(ctx context.Context, cfg *AzureConfig) (Blobstore, error) {
	if cfg.AccountName == "" {
		return nil, fmt.Errorf("missing AZURE_STORAGE_ACCOUNT")
	}

	primaryURLRaw := fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AccountName)
	primaryURL, err := url.Parse(primaryURLRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %v: %w", primaryURLRaw, err)
	}

	// use the storage account key if provided, otherwise use managed identity
	var credential azblob.Credential
	if cfg.AccessKey != "" {
		credential, err = newAccessTokenCredential(cfg.AccountName, cfg.AccessKey)
	} else {
		credential, err = newMSITokenCredential(ctx, primaryURLRaw)
	}
	if err != nil {
		return nil, err
	}

	p := azblob.NewPipeline(credential, azblob.PipelineOptions{})
	serviceURL := azblob.NewServiceURL(*primaryURL, p)

	return &AzureBlobstore{
		serviceURL: &serviceURL,
	}, nil
}

// CreateObject creates a new blob or overwrites an existing one. The bucket
// is the container name.
func (s *AzureBlobstore) CreateObject(ctx context.Context, container, name string, body io.Reader, contentType string) (*ObjectInfo, error) {
	blobURL := s.serviceURL.NewContainerURL(container).NewBlockBlobURL(name)

	resp, err := azblob.UploadStreamToBlockBlob(ctx, body, blobURL, azblob.UploadStreamToBlockBlobOptions{
		BufferSize: azureUploadBufferSize,
		MaxBuffers: azureUploadMaxBuffers,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: contentType,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("storage.CreateObject: %w", err)
	}

	u := blobURL.URL()
	return &ObjectInfo{
		Location: u.String(),
		ETag:     string(resp.ETag()),
	}, nil
}
