// Package version holds build metadata injected via -ldflags, e.g.
//
//	-X github.com/hazz-dev/healthwatch/internal/version.Version=v1.2.0
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build metadata for the version command.
func String() string {
	return fmt.Sprintf("healthwatch %s (commit %s, built %s)", Version, Commit, Date)
}
