// Package version provides build version information for the application.
// It is kept separate so both cli and the API client can read it without an import cycle.
package version

// Version is the build version string, set by ldflags during build.
// Format: vX.Y.Z or vX.Y.Z-dev for development builds.
var Version = "v0.4.0-dev"

// BuildTime is the build timestamp, set by ldflags during build.
var BuildTime = "unknown"

// UserAgent returns the User-Agent header sent to the catalog API.
func UserAgent() string {
	return "folio/" + Version
}
