// Package config provides configuration management for folio.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/folio-media/folio/internal/constants"
)

// Config is the complete folio configuration.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\folio\config.ini
//   - Unix: ~/.config/folio/config.ini
//
// INI format:
//
//	[catalog]
//	api_url = https://catalog.example.com
//	api_key = <token>
//	page_size = 200
//	requests_per_second = 8
//	burst = 16
//
//	[browse]
//	progressive_updates = true
//	skip_initial_update_if_cached = true
//
//	[proxy]
//	mode = no-proxy
//	host = proxy.corp.example
//	port = 8080
//	user = jdoe
//	no_proxy = localhost,127.0.0.1,.corp.example
//
//	[thumbnails]
//	provider = s3
//	bucket = folio-thumbs
//	region = us-east-1
//	prefix = thumbs/
//	concurrency = 4
type Config struct {
	// Catalog API connection
	APIBaseURL        string
	APIKey            string
	PageSize          int
	RequestsPerSecond float64
	Burst             int

	// Browse behavior
	ProgressiveUpdates        bool
	SkipInitialUpdateIfCached bool

	// Proxy settings
	ProxyMode     string // "no-proxy", "system", "basic", "ntlm"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string // never written to disk
	NoProxy       string

	Thumbnails ThumbnailConfig
}

// ThumbnailConfig selects where thumbnail probes are sent.
type ThumbnailConfig struct {
	Provider     string // "none", "http", "s3", "azure"
	BaseURL      string // http provider
	Bucket       string // s3 provider
	Region       string // s3 provider
	AccessKeyID  string // s3 provider, optional; default AWS chain when empty
	SecretKey    string // s3 provider, never written to disk
	Prefix       string
	ContainerURL string // azure provider, may carry a SAS query
	Concurrency  int
}

// Validation errors
var (
	ErrMissingAPIURL        = errors.New("catalog api_url is required")
	ErrInvalidAPIURL        = errors.New("catalog api_url must be an absolute http(s) URL")
	ErrInvalidPageSize      = errors.New("page_size must be between 1 and 10000")
	ErrInvalidProxyMode     = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
	ErrMissingProxyHost     = errors.New("proxy host is required for basic and ntlm modes")
	ErrInvalidThumbProvider = errors.New("thumbnail provider must be one of none, http, s3, azure")
	ErrMissingThumbTarget   = errors.New("thumbnail provider is missing its bucket, base_url or container_url")
)

// Environment variable overrides
const (
	EnvAPIURL    = "FOLIO_API_URL"
	EnvAPIKey    = "FOLIO_API_KEY"
	EnvProxyMode = "FOLIO_PROXY_MODE"
	EnvS3Secret  = "FOLIO_S3_SECRET_KEY"
)

// DefaultConfigPath returns the default path for the config file.
func DefaultConfigPath() (string, error) {
	var configDir string

	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		configDir = filepath.Join(userProfile, ".config", "folio")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "folio")
	}

	return filepath.Join(configDir, "config.ini"), nil
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		PageSize:                  constants.DefaultPageSize,
		RequestsPerSecond:         constants.DefaultRequestsPerSecond,
		Burst:                     constants.DefaultRequestBurst,
		ProgressiveUpdates:        true,
		SkipInitialUpdateIfCached: true,
		ProxyMode:                 "no-proxy",
		ProxyPort:                 8080,
		Thumbnails: ThumbnailConfig{
			Provider:    "none",
			Concurrency: constants.DefaultThumbnailConcurrency,
		},
	}
}

// Load reads configuration from an INI file and applies environment overrides.
// A missing file yields defaults and no error; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			cfg.ApplyEnv()
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.ApplyEnv()
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	catalog := iniFile.Section("catalog")
	cfg.APIBaseURL = strings.TrimRight(catalog.Key("api_url").String(), "/")
	cfg.APIKey = catalog.Key("api_key").String()
	cfg.PageSize = catalog.Key("page_size").MustInt(cfg.PageSize)
	cfg.RequestsPerSecond = catalog.Key("requests_per_second").MustFloat64(cfg.RequestsPerSecond)
	cfg.Burst = catalog.Key("burst").MustInt(cfg.Burst)

	browse := iniFile.Section("browse")
	cfg.ProgressiveUpdates = browse.Key("progressive_updates").MustBool(true)
	cfg.SkipInitialUpdateIfCached = browse.Key("skip_initial_update_if_cached").MustBool(true)

	proxy := iniFile.Section("proxy")
	cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = proxy.Key("host").String()
	cfg.ProxyPort = proxy.Key("port").MustInt(cfg.ProxyPort)
	cfg.ProxyUser = proxy.Key("user").String()
	cfg.NoProxy = proxy.Key("no_proxy").String()

	thumbs := iniFile.Section("thumbnails")
	cfg.Thumbnails.Provider = thumbs.Key("provider").MustString(cfg.Thumbnails.Provider)
	cfg.Thumbnails.BaseURL = thumbs.Key("base_url").String()
	cfg.Thumbnails.Bucket = thumbs.Key("bucket").String()
	cfg.Thumbnails.Region = thumbs.Key("region").String()
	cfg.Thumbnails.AccessKeyID = thumbs.Key("access_key_id").String()
	cfg.Thumbnails.Prefix = thumbs.Key("prefix").String()
	cfg.Thumbnails.ContainerURL = thumbs.Key("container_url").String()
	cfg.Thumbnails.Concurrency = thumbs.Key("concurrency").MustInt(cfg.Thumbnails.Concurrency)

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides file values with FOLIO_* environment variables.
func (cfg *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.APIBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(EnvProxyMode); v != "" {
		cfg.ProxyMode = v
	}
	if v := os.Getenv(EnvS3Secret); v != "" {
		cfg.Thumbnails.SecretKey = v
	}
}

// Save writes configuration to an INI file.
// Creates parent directories if they don't exist. The proxy password and S3 secret are never saved.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	sections := []struct {
		name string
		keys [][2]string
	}{
		{"catalog", [][2]string{
			{"api_url", cfg.APIBaseURL},
			{"api_key", cfg.APIKey},
			{"page_size", fmt.Sprintf("%d", cfg.PageSize)},
			{"requests_per_second", fmt.Sprintf("%g", cfg.RequestsPerSecond)},
			{"burst", fmt.Sprintf("%d", cfg.Burst)},
		}},
		{"browse", [][2]string{
			{"progressive_updates", fmt.Sprintf("%t", cfg.ProgressiveUpdates)},
			{"skip_initial_update_if_cached", fmt.Sprintf("%t", cfg.SkipInitialUpdateIfCached)},
		}},
		{"proxy", [][2]string{
			{"mode", cfg.ProxyMode},
			{"host", cfg.ProxyHost},
			{"port", fmt.Sprintf("%d", cfg.ProxyPort)},
			{"user", cfg.ProxyUser},
			{"no_proxy", cfg.NoProxy},
		}},
		{"thumbnails", [][2]string{
			{"provider", cfg.Thumbnails.Provider},
			{"base_url", cfg.Thumbnails.BaseURL},
			{"bucket", cfg.Thumbnails.Bucket},
			{"region", cfg.Thumbnails.Region},
			{"access_key_id", cfg.Thumbnails.AccessKeyID},
			{"prefix", cfg.Thumbnails.Prefix},
			{"container_url", cfg.Thumbnails.ContainerURL},
			{"concurrency", fmt.Sprintf("%d", cfg.Thumbnails.Concurrency)},
		}},
	}

	for _, sec := range sections {
		section, err := iniFile.NewSection(sec.name)
		if err != nil {
			return fmt.Errorf("failed to create %s section: %w", sec.name, err)
		}
		for _, kv := range sec.keys {
			section.Key(kv[0]).SetValue(kv[1])
		}
	}

	// Temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	// The API key is sensitive
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks the configuration. It returns the first problem found.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return ErrMissingAPIURL
	}
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidAPIURL
	}
	if cfg.PageSize < 1 || cfg.PageSize > 10000 {
		return ErrInvalidPageSize
	}

	switch strings.ToLower(cfg.ProxyMode) {
	case "", "no-proxy", "system":
	case "basic", "ntlm":
		if strings.TrimSpace(cfg.ProxyHost) == "" {
			return ErrMissingProxyHost
		}
	default:
		return ErrInvalidProxyMode
	}

	switch strings.ToLower(cfg.Thumbnails.Provider) {
	case "", "none":
	case "http":
		if cfg.Thumbnails.BaseURL == "" {
			return ErrMissingThumbTarget
		}
	case "s3":
		if cfg.Thumbnails.Bucket == "" {
			return ErrMissingThumbTarget
		}
	case "azure":
		if cfg.Thumbnails.ContainerURL == "" {
			return ErrMissingThumbTarget
		}
	default:
		return ErrInvalidThumbProvider
	}

	return nil
}

// RedactedAPIKey returns the API key with all but the last four characters masked.
func (cfg *Config) RedactedAPIKey() string {
	k := cfg.APIKey
	if len(k) <= 4 {
		return strings.Repeat("*", len(k))
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}
