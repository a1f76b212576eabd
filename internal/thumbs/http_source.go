package thumbs

import (
	"context"
	"fmt"
	nethttp "net/http"
	"strings"

	"github.com/folio-media/folio/internal/version"
)

// statusError carries the status of a failed probe so the retry
// classifier can tell throttling from a missing object.
type statusError struct {
	key  string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("thumbnail %s: status %d", e.key, e.code)
}

func (e *statusError) HTTPStatus() int { return e.code }

// HTTPSource probes thumbnails on a CDN or static file server with HEAD requests.
type HTTPSource struct {
	baseURL string
	client  *nethttp.Client
}

// NewHTTPSource creates a source rooted at baseURL.
func NewHTTPSource(baseURL string, client *nethttp.Client) *HTTPSource {
	if client == nil {
		client = nethttp.DefaultClient
	}
	return &HTTPSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

func (s *HTTPSource) Name() string { return "http" }

func (s *HTTPSource) Stat(ctx context.Context, key string) (Info, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodHead, s.baseURL+"/"+key, nil)
	if err != nil {
		return Info{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return Info{}, err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == nethttp.StatusNotFound:
		return Info{}, fmt.Errorf("%s: %w", key, ErrThumbnailMissing)
	case resp.StatusCode >= 300:
		return Info{}, &statusError{key: key, code: resp.StatusCode}
	}

	return Info{
		Key:  key,
		Size: resp.ContentLength,
		ETag: strings.Trim(resp.Header.Get("ETag"), `"`),
	}, nil
}
