package sink

import (
	"context"
	"fmt"
	nethttp "net/http"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"github.com/lohnkonto/lohnkonto-client/internal/constants"
	"github.com/lohnkonto/lohnkonto-client/internal/logging"
	"github.com/lohnkonto/lohnkonto-client/internal/util/sanitize"
)

// AzureBlob uploads results to a blob container using a SAS URL.
type AzureBlob struct {
	client    *azblob.Client
	baseURL   string // Account URL without the SAS query
	container string
	prefix    string
	logger    *logging.Logger
}

// NewAzureBlob creates a client for the storage account at accountURL, which
// carries its SAS token in the query string.
func NewAzureBlob(accountURL, container, prefix string, httpClient *nethttp.Client, logger *logging.Logger) (*AzureBlob, error) {
	if container == "" {
		return nil, fmt.Errorf("azblob destination needs a container")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	opts := &azblob.ClientOptions{}
	if httpClient != nil {
		opts.ClientOptions = azcore.ClientOptions{Transport: httpClient}
	}
	client, err := azblob.NewClientWithNoCredential(accountURL, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	base := accountURL
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}

	return &AzureBlob{
		client:    client,
		baseURL:   strings.TrimRight(base, "/"),
		container: container,
		prefix:    prefix,
		logger:    logger,
	}, nil
}

// Save uploads data as a block blob. Existing blobs are replaced.
func (a *AzureBlob) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	blobName := path.Join(a.prefix, sanitize.SanitizeFileName(name, constants.DefaultResultFileName))
	if contentType == "" {
		contentType = constants.ResultContentType
	}

	_, err := a.client.UploadBuffer(ctx, a.container, blobName, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload blob %s/%s: %w", a.container, blobName, err)
	}

	location := fmt.Sprintf("%s/%s/%s", a.baseURL, a.container, blobName)
	a.logger.Debug().Str("location", location).Int("bytes", len(data)).Msg("result uploaded")
	return location, nil
}
