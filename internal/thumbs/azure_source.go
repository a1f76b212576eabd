package thumbs

import (
	"context"
	"fmt"
	nethttp "net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// AzureSource probes thumbnails in an Azure blob container.
// The container URL normally carries a read-only SAS token.
type AzureSource struct {
	client *container.Client
}

// NewAzureSource creates a container client that shares httpClient's transport.
func NewAzureSource(containerURL string, httpClient *nethttp.Client) (*AzureSource, error) {
	if containerURL == "" {
		return nil, fmt.Errorf("azure thumbnails: container_url is required")
	}

	opts := &container.ClientOptions{}
	if httpClient != nil {
		opts.ClientOptions = azcore.ClientOptions{Transport: httpClient}
	}

	client, err := container.NewClientWithNoCredential(containerURL, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}
	return &AzureSource{client: client}, nil
}

func (s *AzureSource) Name() string { return "azure" }

func (s *AzureSource) Stat(ctx context.Context, key string) (Info, error) {
	resp, err := s.client.NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return Info{}, fmt.Errorf("%s: %w", key, ErrThumbnailMissing)
		}
		return Info{}, err
	}

	info := Info{Key: key}
	if resp.ContentLength != nil {
		info.Size = *resp.ContentLength
	}
	if resp.ETag != nil {
		info.ETag = strings.Trim(string(*resp.ETag), `"`)
	}
	return info, nil
}
