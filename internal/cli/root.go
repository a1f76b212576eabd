// Package cli provides the command-line interface for folio.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/folio-media/folio/internal/logging"
	"github.com/folio-media/folio/internal/version"
)

// Persistent flags, shared by every subcommand.
var (
	cfgFile    string
	apiKey     string
	apiBaseURL string
	pageSize   int
	verbose    bool
	debug      bool
)

var (
	logger  *logging.Logger
	rootCtx context.Context
)

// NewRootCmd creates the root command without subcommands; see AddCommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folio",
		Short: "Browse and warm media catalog folders",
		Long: `folio ` + version.Version + ` (built ` + version.BuildTime + `)

folio pages through media catalog folders and merges every page into one
folder snapshot. It keeps the same session cache, scroll anchors and
thumbnail probes an interactive viewer keeps, which makes it useful for
checking how a large folder will behave before a user opens it.`,
		Version:      version.Version + " (" + version.BuildTime + ")",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&cfgFile, "config", "c", "", "Config file (default ~/.config/folio/config.ini)")
	f.StringVar(&apiBaseURL, "api-url", "", "Catalog API base URL, overrides FOLIO_API_URL")
	f.StringVar(&apiKey, "api-key", "", "Catalog API key, overrides FOLIO_API_KEY")
	f.IntVar(&pageSize, "page-size", 0, "Items requested per page (0 uses the config value)")
	f.BoolVarP(&verbose, "verbose", "v", false, "Show debug messages")
	f.BoolVar(&debug, "debug", false, "Alias for --verbose")

	return cmd
}

// AddCommands registers every subcommand on root.
func AddCommands(root *cobra.Command) {
	root.AddCommand(
		newBrowseCmd(),
		newWarmCmd(),
		newRestoreCmd(),
		newConfigCmd(),
	)
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the context returned by
// GetContext so running hydrations stop at the next page boundary.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCtx = ctx

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "\nInterrupted, cancelling...")
		case <-finished:
		}
	}()

	root := NewRootCmd()
	AddCommands(root)
	return root.ExecuteContext(ctx)
}

// GetLogger returns the CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the signal-aware context set up by Execute, or
// context.Background when Execute was not used.
func GetContext() context.Context {
	if rootCtx == nil {
		return context.Background()
	}
	return rootCtx
}
