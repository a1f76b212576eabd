package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/folio-media/folio/internal/api"
	"github.com/folio-media/folio/internal/config"
	"github.com/folio-media/folio/internal/http"
	"github.com/folio-media/folio/internal/thumbs"
)

// loadConfig reads the config file and applies overrides.
// Priority: flags > environment > config file > defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if apiBaseURL != "" {
		cfg.APIBaseURL = apiBaseURL
	}
	if pageSize > 0 {
		cfg.PageSize = pageSize
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingAPIURL) {
			return nil, fmt.Errorf("%w (use --api-url, FOLIO_API_URL or 'folio config init')", err)
		}
		return nil, err
	}

	if http.NeedsProxyPassword(cfg) {
		password, err := promptProxyPassword(cfg.ProxyUser)
		if err != nil {
			GetLogger().Warn().Err(err).Msg("Could not read proxy password, continuing without proxy auth")
		} else {
			cfg.ProxyPassword = password
		}
	}

	return cfg, nil
}

// getAPIClient loads configuration and creates a catalog API client.
func getAPIClient() (*api.Client, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	client, err := api.NewClient(cfg, GetLogger().Named("api"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return client, cfg, nil
}

// newPrefetcher builds a thumbnail prefetcher from cfg, or returns nil when
// thumbnails are disabled.
func newPrefetcher(ctx context.Context, cfg *config.Config) (*thumbs.Prefetcher, error) {
	log := GetLogger().Named("thumbs")

	httpClient, err := http.NewClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	source, err := thumbs.NewSource(ctx, cfg.Thumbnails, httpClient, log)
	if errors.Is(err, thumbs.ErrNoSource) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail source: %w", err)
	}

	return thumbs.NewPrefetcher(source, thumbs.Options{
		Prefix:      cfg.Thumbnails.Prefix,
		Concurrency: cfg.Thumbnails.Concurrency,
		Logger:      log,
	}), nil
}
