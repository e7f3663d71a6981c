package objectstore

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureOptions locates an Azure Blob Storage container.
type AzureOptions struct {
	ConnectionString string
	Container        string
	Prefix           string
	HTTPClient       *nethttp.Client
}

// AzureStore lists blobs of one container.
type AzureStore struct {
	client    *azblob.Client
	container string
	prefix    string
}

var _ Store = (*AzureStore)(nil)

// NewAzureStore creates an Azure Blob Storage store from a connection string.
func NewAzureStore(opts AzureOptions) (*AzureStore, error) {
	if opts.ConnectionString == "" || opts.Container == "" {
		return nil, errors.New("azure connection string and container are required")
	}

	clientOpts := &azblob.ClientOptions{}
	if opts.HTTPClient != nil {
		clientOpts.ClientOptions = azcore.ClientOptions{
			Transport: opts.HTTPClient,
		}
	}

	client, err := azblob.NewClientFromConnectionString(opts.ConnectionString, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	return &AzureStore{client: client, container: opts.Container, prefix: opts.Prefix}, nil
}

// List pages through the flat blob listing.
func (s *AzureStore) List(ctx context.Context, prefix string) ([]Object, error) {
	full := s.Key(prefix)
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix: &full,
	})

	var objects []Object
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", s.URI(full), err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			obj := Object{Key: *item.Name}
			if item.Properties != nil && item.Properties.ContentLength != nil {
				obj.Size = *item.Properties.ContentLength
			}
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

func (s *AzureStore) Key(rel string) string {
	return joinPrefix(s.prefix, rel)
}

// URI returns the blob URL of key.
func (s *AzureStore) URI(key string) string {
	return strings.TrimSuffix(s.client.URL(), "/") + "/" + s.container + "/" + key
}
