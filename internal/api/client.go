package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/folio-media/folio/internal/config"
	"github.com/folio-media/folio/internal/constants"
	"github.com/folio-media/folio/internal/http"
	"github.com/folio-media/folio/internal/hydrate"
	"github.com/folio-media/folio/internal/logging"
	"github.com/folio-media/folio/internal/models"
	"github.com/folio-media/folio/internal/ratelimit"
	"github.com/folio-media/folio/internal/validation"
	"github.com/folio-media/folio/internal/version"
)

// retryLogger adapts the zerolog wrapper to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Every attempt logs at info; too noisy for a browse session
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// apiMetrics tracks API usage statistics
type apiMetrics struct {
	sync.Mutex
	totalCalls    int64
	throttled     int64
	windowStart   time.Time
	callsInWindow int64
}

// Client talks to the catalog API.
type Client struct {
	httpClient *nethttp.Client
	baseURL    string
	apiKey     string
	limiter    *ratelimit.RateLimiter
	logger     *logging.Logger
	metrics    *apiMetrics
}

// NewClient creates a catalog API client with proxy support, retries and rate limiting.
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, ErrEmptyBaseURL
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	httpClient, err := http.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	limiter := ratelimit.NewRateLimiter(cfg.RequestsPerSecond, float64(cfg.Burst))
	limiter.SetLogger(logger)

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = constants.MaxRetries
	retryClient.RetryWaitMin = constants.RetryInitialDelay
	retryClient.RetryWaitMax = constants.RetryMaxDelay
	retryClient.Logger = &retryLogger{logger: logger}

	c := &Client{
		baseURL: strings.TrimSuffix(cfg.APIBaseURL, "/"),
		apiKey:  cfg.APIKey,
		limiter: limiter,
		logger:  logger,
		metrics: &apiMetrics{windowStart: time.Now()},
	}

	// A 429 seen on any attempt pauses every caller sharing the limiter,
	// not just the request being retried.
	retryClient.ResponseLogHook = func(_ retryablehttp.Logger, resp *nethttp.Response) {
		if resp.StatusCode == nethttp.StatusTooManyRequests {
			c.onThrottled(resp)
		}
	}

	c.httpClient = retryClient.StandardClient()
	return c, nil
}

func (c *Client) onThrottled(resp *nethttp.Response) {
	c.metrics.Lock()
	c.metrics.throttled++
	c.metrics.Unlock()

	cooldown := time.Second
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			cooldown = time.Duration(secs) * time.Second
		}
	}
	c.limiter.SetCooldown(cooldown)

	c.logger.Warn().
		Str("path", resp.Request.URL.Path).
		Dur("cooldown", cooldown).
		Msg("Throttled by catalog API")
}

// doRequest performs an authenticated, rate limited GET.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) (*nethttp.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}

	c.metrics.Lock()
	c.metrics.totalCalls++
	c.metrics.callsInWindow++
	if time.Since(c.metrics.windowStart) >= 30*time.Second {
		c.logger.Debug().
			Float64("req_per_sec", float64(c.metrics.callsInWindow)/30.0).
			Int64("total_calls", c.metrics.totalCalls).
			Int64("throttled", c.metrics.throttled).
			Msg("API usage")
		c.metrics.callsInWindow = 0
		c.metrics.windowStart = time.Now()
	}
	c.metrics.Unlock()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", path).Msg("API call failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// FetchFolderPage fetches one page of a folder listing. Pages are 1-based.
func (c *Client) FetchFolderPage(ctx context.Context, folderPath string, page, pageSize int) (*models.FolderPage, error) {
	query := url.Values{}
	query.Set("path", folderPath)
	query.Set("page", strconv.Itoa(page))
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}

	resp, err := c.doRequest(ctx, "/api/v1/folders", query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &HTTPStatusError{
			Method:     nethttp.MethodGet,
			Path:       folderPath,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var fp models.FolderPage
	if err := json.NewDecoder(resp.Body).Decode(&fp); err != nil {
		return nil, fmt.Errorf("failed to decode folder page %d of %s: %w", page, folderPath, err)
	}
	if fp.Path == "" {
		fp.Path = folderPath
	}
	fp.Items = c.dropInvalidItems(folderPath, fp.Items)
	if fp.Page == nil {
		fp.Page = models.IntPtr(page)
	}

	c.logger.Debug().
		Str("path", folderPath).
		Int("page", page).
		Int("items", len(fp.Items)).
		Msg("Fetched folder page")

	return &fp, nil
}

// dropInvalidItems removes items whose path cannot serve as an identity.
func (c *Client) dropInvalidItems(folderPath string, items []models.Item) []models.Item {
	kept := items[:0]
	for _, it := range items {
		if err := validation.ValidateItemPath(it.Path); err != nil {
			c.logger.Warn().Err(err).Str("folder", folderPath).Msg("Dropping item with invalid path")
			continue
		}
		kept = append(kept, it)
	}
	return kept
}

// FetchFirstPage fetches page 1 of a folder.
func (c *Client) FetchFirstPage(ctx context.Context, folderPath string, pageSize int) (*models.FolderPage, error) {
	return c.FetchFolderPage(ctx, folderPath, 1, pageSize)
}

// PageFetcher binds the client to one folder for use with hydrate.Hydrate.
func (c *Client) PageFetcher(folderPath string) hydrate.PageFetcher {
	return func(ctx context.Context, page, pageSize int) (*models.FolderPage, error) {
		return c.FetchFolderPage(ctx, folderPath, page, pageSize)
	}
}

// Stats returns total calls and throttled responses so far.
func (c *Client) Stats() (calls, throttled int64) {
	c.metrics.Lock()
	defer c.metrics.Unlock()
	return c.metrics.totalCalls, c.metrics.throttled
}
