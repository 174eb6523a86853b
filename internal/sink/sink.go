// Package sink stores processed spreadsheets. A sink is chosen from a
// destination string: a local directory, s3://bucket/prefix or
// azblob://container/prefix.
package sink

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/lohnkonto/lohnkonto-client/internal/config"
	"github.com/lohnkonto/lohnkonto-client/internal/logging"
	"github.com/lohnkonto/lohnkonto-client/internal/transfer"
)

// Sink saves a result and returns where it ended up.
type Sink interface {
	Save(ctx context.Context, name, contentType string, data []byte) (location string, err error)
}

// Destination is a parsed output destination.
type Destination struct {
	Scheme string // "file", "s3" or "azblob"
	Bucket string // Bucket or container, empty for local directories
	Prefix string // Key prefix or local directory
}

// ParseDestination splits a destination string. Anything without an s3:// or
// azblob:// scheme is a local directory; an empty string means the current
// directory.
func ParseDestination(dest string) (Destination, error) {
	dest = strings.TrimSpace(dest)
	lower := strings.ToLower(dest)

	switch {
	case strings.HasPrefix(lower, "s3://"), strings.HasPrefix(lower, "azblob://"):
		u, err := url.Parse(dest)
		if err != nil {
			return Destination{}, fmt.Errorf("invalid destination %q: %w", dest, err)
		}
		if u.Host == "" {
			return Destination{}, fmt.Errorf("destination %q has no bucket or container", dest)
		}
		return Destination{
			Scheme: strings.ToLower(u.Scheme),
			Bucket: u.Host,
			Prefix: strings.Trim(u.Path, "/"),
		}, nil
	case strings.HasPrefix(lower, "file://"):
		dest = dest[len("file://"):]
	}

	if dest == "" {
		dest = "."
	}
	return Destination{Scheme: "file", Prefix: dest}, nil
}

// Open builds the sink for dest. httpClient is used by the object storage
// sinks so they share proxy settings with the upload.
func Open(ctx context.Context, dest string, cfg *config.Config, httpClient *nethttp.Client, logger *logging.Logger) (Sink, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	d, err := ParseDestination(dest)
	if err != nil {
		return nil, err
	}

	switch d.Scheme {
	case "s3":
		return NewS3(ctx, d.Bucket, d.Prefix, cfg, httpClient, logger)
	case "azblob":
		if cfg.AzureAccountURL == "" {
			return nil, fmt.Errorf("azblob destination requires LOHNKONTO_AZURE_SAS_URL")
		}
		return NewAzureBlob(cfg.AzureAccountURL, d.Bucket, d.Prefix, httpClient, logger)
	default:
		return NewLocal(d.Prefix, cfg.Overwrite, logger)
	}
}

// DownloadFunc adapts s to the controller's download effect.
func DownloadFunc(s Sink) transfer.DownloadFunc {
	return func(ctx context.Context, a *transfer.Artifact) (string, error) {
		return s.Save(ctx, a.Name, a.ContentType, a.Data)
	}
}
