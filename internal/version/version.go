package version

import "fmt"

// Set at build time via -ldflags "-X".
var (
	Version = "0.1.0"
	Commit  = "dev"
	Date    = "unknown"
)

// Full returns the version with build metadata.
func Full() string {
	return fmt.Sprintf("simharness %s (commit %s, built %s)", Version, Commit, Date)
}
