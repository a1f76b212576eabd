// Folio - media catalog folder browser
package main

import (
	"os"

	"github.com/folio-media/folio/internal/cli"
	"github.com/folio-media/folio/internal/version"
)

// Version information, overridden with -ldflags at build time.
var (
	Version   = "v0.4.0-dev"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
