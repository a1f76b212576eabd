package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/folio-media/folio/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage folio configuration",
		Long: `Configuration management commands for folio.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test API connection
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// resolveConfigPath returns --config or the default location.
func resolveConfigPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultConfigPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for folio.

The configuration will be saved to ~/.config/folio/config.ini

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath()
			if err != nil {
				return err
			}

			if !force {
				if _, err := os.Stat(configPath); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Configuration already exists at: %s\n", configPath)
					fmt.Fprintln(cmd.OutOrStdout(), "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			cfg, err := runConfigWizard(cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			if err := config.Save(cfg, configPath); err != nil {
				return err
			}
			GetLogger().Info().Str("path", configPath).Msg("Configuration saved")

			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration saved to: %s\n", configPath)
			fmt.Fprintln(cmd.OutOrStdout(), "Test your configuration with: folio config test")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// runConfigWizard asks for every setting and returns the resulting config.
func runConfigWizard(in io.Reader, out io.Writer) (*config.Config, error) {
	cfg := config.NewConfig()
	p := newPrompter(in, out)

	fmt.Fprintln(out, "Folio Configuration Setup")
	fmt.Fprintln(out, "=========================")
	fmt.Fprintln(out)

	apiURL, err := p.required("API Base URL")
	if err != nil {
		return nil, err
	}
	cfg.APIBaseURL = strings.TrimRight(apiURL, "/")
	cfg.APIKey = p.line("API Key (leave empty for anonymous access)", "")
	cfg.PageSize = p.positiveInt("Page size", cfg.PageSize)

	fmt.Fprintln(out)
	if p.yes("Configure proxy?") {
		fmt.Fprintln(out, "Proxy modes: no-proxy, system, basic, ntlm")
		cfg.ProxyMode = p.line("Proxy mode", "system")
		if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
			cfg.ProxyHost = p.line("Proxy host", "")
			cfg.ProxyPort = p.positiveInt("Proxy port", cfg.ProxyPort)
			cfg.ProxyUser = p.line("Proxy user", "")
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Thumbnail providers: none, http, s3, azure")
	cfg.Thumbnails.Provider = p.line("Thumbnail provider", cfg.Thumbnails.Provider)
	switch cfg.Thumbnails.Provider {
	case "http":
		cfg.Thumbnails.BaseURL = p.line("Thumbnail base URL", "")
	case "s3":
		cfg.Thumbnails.Bucket = p.line("S3 bucket", "")
		cfg.Thumbnails.Region = p.line("S3 region", "us-east-1")
		cfg.Thumbnails.AccessKeyID = p.line("S3 access key ID (empty = default credential chain)", "")
		if cfg.Thumbnails.AccessKeyID != "" {
			fmt.Fprintf(out, "  Set %s to provide the secret key.\n", config.EnvS3Secret)
		}
	case "azure":
		cfg.Thumbnails.ContainerURL = p.line("Container URL (with SAS token)", "")
	}
	if cfg.Thumbnails.Provider != "none" {
		cfg.Thumbnails.Prefix = p.line("Thumbnail key prefix", "")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Configuration file (~/.config/folio/config.ini)
  2. Environment variables (FOLIO_API_KEY, FOLIO_API_URL, FOLIO_PROXY_MODE)
  3. Command-line flags (--api-key, --api-url, --page-size)

Priority: flags > environment > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
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

			printConfig(cmd.OutOrStdout(), cfg)

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file: %s\n", configPath)
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "  (file does not exist - using defaults)")
			}
			return nil
		},
	}

	return cmd
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Current Configuration")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Catalog:")
	fmt.Fprintf(w, "  API Base URL: %s\n", cfg.APIBaseURL)
	if cfg.APIKey != "" {
		fmt.Fprintf(w, "  API Key:      %s\n", cfg.RedactedAPIKey())
	} else {
		fmt.Fprintln(w, "  API Key:      <not set>")
	}
	fmt.Fprintf(w, "  Page Size:    %d\n", cfg.PageSize)
	fmt.Fprintf(w, "  Rate Limit:   %.1f req/s (burst %d)\n", cfg.RequestsPerSecond, cfg.Burst)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Browse:")
	fmt.Fprintf(w, "  Progressive Updates:            %t\n", cfg.ProgressiveUpdates)
	fmt.Fprintf(w, "  Skip Initial Update If Cached:  %t\n", cfg.SkipInitialUpdateIfCached)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Proxy:")
	fmt.Fprintf(w, "  Mode: %s\n", cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		fmt.Fprintf(w, "  Host: %s:%d\n", cfg.ProxyHost, cfg.ProxyPort)
	}
	if cfg.ProxyUser != "" {
		fmt.Fprintf(w, "  User: %s\n", cfg.ProxyUser)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Thumbnails:")
	fmt.Fprintf(w, "  Provider:    %s\n", cfg.Thumbnails.Provider)
	switch cfg.Thumbnails.Provider {
	case "http":
		fmt.Fprintf(w, "  Base URL:    %s\n", cfg.Thumbnails.BaseURL)
	case "s3":
		fmt.Fprintf(w, "  Bucket:      %s (%s)\n", cfg.Thumbnails.Bucket, cfg.Thumbnails.Region)
	case "azure":
		// The container URL may carry a SAS token
		container := cfg.Thumbnails.ContainerURL
		if i := strings.IndexByte(container, '?'); i >= 0 {
			container = container[:i] + "?<sas>"
		}
		fmt.Fprintf(w, "  Container:   %s\n", container)
	}
	if cfg.Thumbnails.Prefix != "" {
		fmt.Fprintf(w, "  Prefix:      %s\n", cfg.Thumbnails.Prefix)
	}
	fmt.Fprintf(w, "  Concurrency: %d\n", cfg.Thumbnails.Concurrency)
	fmt.Fprintln(w)
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test API connection",
		Long: `Test the API connection with current configuration.

Fetches the first page of the catalog root to verify the URL, API key
and network connectivity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			out := cmd.OutOrStdout()

			client, cfg, err := getAPIClient()
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "API URL: %s\n", cfg.APIBaseURL)
			fmt.Fprintln(out, "Testing connection...")

			ctx, cancel := context.WithTimeout(GetContext(), 10*time.Second)
			defer cancel()

			start := time.Now()
			page, err := client.FetchFirstPage(ctx, "/", cfg.PageSize)
			if err != nil {
				logger.Error().Err(err).Msg("Connection test failed")
				fmt.Fprintln(out, "✗ Connection FAILED")
				fmt.Fprintf(out, "  Error: %v\n", err)
				return fmt.Errorf("connection test failed")
			}

			logger.Info().Dur("elapsed", time.Since(start)).Msg("Connection test successful")
			fmt.Fprintln(out, "✓ Connection SUCCESSFUL")
			fmt.Fprintf(out, "  Root folder: %d items, %d subfolders on page 1\n", len(page.Items), len(page.Dirs))
			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), configPath)
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "  (file does not exist)")
			}
			return nil
		},
	}

	return cmd
}
