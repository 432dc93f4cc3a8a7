// Package version provides build and version information for ctxrank.
package version

import (
	"fmt"
	"runtime"
)

// Version is the current version of ctxrank.
// Set via ldflags at build time, or defaults to dev:
// -X github.com/Aman-CERP/ctxrank/pkg/version.Version=$(VERSION)
var Version = "dev"

// Build information set via ldflags at build time.
var (
	// Commit is the git commit hash.
	Commit = "unknown"

	// Date is the build date in RFC3339 format.
	Date = "unknown"

	// GoVersion is the Go version used to build the binary (set at runtime).
	GoVersion = runtime.Version()
)

// BuildInfo is structured version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String returns a formatted version string with all build info.
func String() string {
	return fmt.Sprintf("ctxrank %s (commit: %s, built: %s, go: %s)",
		Version, Commit, Date, GoVersion)
}

// UserAgent identifies ctxrank in outbound HTTP requests, e.g. to an
// embedding server.
func UserAgent() string {
	return "ctxrank/" + Version
}

// Short returns just the version string.
func Short() string {
	return Version
}

// GetInfo returns structured version information.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
