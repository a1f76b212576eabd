// Package thumbs warms thumbnails for the items a viewer is about to show.
//
// A Prefetcher takes item paths (typically the visible set reported by the
// layout engine), maps each to a thumbnail key and probes the configured
// Source for it with bounded concurrency. Probing a CDN or object store ahead
// of the viewer keeps scroll-in latency low; the probe result is kept so the
// same item is not probed twice.
package thumbs

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"path"
	"strings"

	"github.com/folio-media/folio/internal/config"
	"github.com/folio-media/folio/internal/logging"
)

// ErrNoSource is returned by NewSource when thumbnails are disabled.
var ErrNoSource = errors.New("thumbnail provider is disabled")

// ErrThumbnailMissing means the source has no thumbnail for the key.
var ErrThumbnailMissing = errors.New("thumbnail not found")

// Info describes a thumbnail the source confirmed.
type Info struct {
	Key  string
	Size int64
	ETag string
}

// Source probes a thumbnail store.
type Source interface {
	// Name identifies the provider in logs.
	Name() string
	// Stat returns thumbnail metadata, or an error wrapping ErrThumbnailMissing.
	Stat(ctx context.Context, key string) (Info, error)
}

// ThumbKey maps an item path to its thumbnail object key under prefix.
// "/photos/a.jpg" with prefix "thumbs/" becomes "thumbs/photos/a.jpg.webp".
func ThumbKey(prefix, itemPath string) string {
	key := strings.TrimPrefix(path.Clean("/"+itemPath), "/") + ".webp"
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}

// NewSource builds the Source selected by cfg.Provider.
// httpClient carries the proxy and transport settings shared with the API client.
func NewSource(ctx context.Context, cfg config.ThumbnailConfig, httpClient *nethttp.Client, logger *logging.Logger) (Source, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "none":
		return nil, ErrNoSource
	case "http":
		return NewHTTPSource(cfg.BaseURL, httpClient), nil
	case "s3":
		return NewS3Source(ctx, cfg, httpClient)
	case "azure":
		return NewAzureSource(cfg.ContainerURL, httpClient)
	default:
		return nil, fmt.Errorf("unsupported thumbnail provider: %s", cfg.Provider)
	}
}
