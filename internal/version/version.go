// Package version provides build-time version information.
package version

import "fmt"

// Set at build time using -ldflags.
var (
	// Version is the semantic version.
	Version = "0.1.0"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"
)

// String renders the version line the tools print for -version.
func String() string {
	return fmt.Sprintf("captcha-solver %s (%s)", Version, GitCommit)
}
