package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.ini"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PageSize != 200 || !cfg.ProgressiveUpdates || cfg.ProxyMode != "no-proxy" {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvProxyMode, "")
	path := filepath.Join(t.TempDir(), "folio", "config.ini")

	cfg := NewConfig()
	cfg.APIBaseURL = "https://catalog.example.com"
	cfg.APIKey = "secret-key-1234"
	cfg.PageSize = 50
	cfg.ProgressiveUpdates = false
	cfg.ProxyMode = "basic"
	cfg.ProxyHost = "proxy.local"
	cfg.ProxyPassword = "hunter2"
	cfg.Thumbnails.Provider = "s3"
	cfg.Thumbnails.Bucket = "thumbs"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.APIBaseURL != cfg.APIBaseURL || loaded.APIKey != cfg.APIKey || loaded.PageSize != 50 {
		t.Errorf("Catalog section mismatch: %+v", loaded)
	}
	if loaded.ProgressiveUpdates {
		t.Error("Expected progressive_updates=false to survive round trip")
	}
	if loaded.ProxyPassword != "" {
		t.Error("Proxy password must never be written to disk")
	}
	if loaded.Thumbnails.Bucket != "thumbs" {
		t.Errorf("Expected bucket 'thumbs', got %q", loaded.Thumbnails.Bucket)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0077 != 0 && os.PathSeparator == '/' {
		t.Errorf("Expected private permissions, got %v", info.Mode().Perm())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte("[catalog]\napi_url = https://file.example.com/\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvAPIURL, "https://env.example.com/")
	t.Setenv(EnvAPIKey, "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIBaseURL != "https://env.example.com" {
		t.Errorf("Expected env URL without trailing slash, got %q", cfg.APIBaseURL)
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("Expected env API key, got %q", cfg.APIKey)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := NewConfig()
		cfg.APIBaseURL = "https://catalog.example.com"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing url", func(c *Config) { c.APIBaseURL = "" }, ErrMissingAPIURL},
		{"relative url", func(c *Config) { c.APIBaseURL = "catalog.example.com" }, ErrInvalidAPIURL},
		{"page size", func(c *Config) { c.PageSize = 0 }, ErrInvalidPageSize},
		{"ntlm without host", func(c *Config) { c.ProxyMode = "ntlm" }, ErrMissingProxyHost},
		{"bad proxy mode", func(c *Config) { c.ProxyMode = "socks" }, ErrInvalidProxyMode},
		{"azure without container", func(c *Config) { c.Thumbnails.Provider = "azure" }, ErrMissingThumbTarget},
		{"bad provider", func(c *Config) { c.Thumbnails.Provider = "gcs" }, ErrInvalidThumbProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRedactedAPIKey(t *testing.T) {
	cfg := &Config{APIKey: "abcdefgh"}
	if got := cfg.RedactedAPIKey(); got != "****efgh" {
		t.Errorf("RedactedAPIKey() = %q", got)
	}
}
