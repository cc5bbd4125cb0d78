package version

import (
	"fmt"
	"runtime"
)

// Set at build time via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns just the version number.
func Short() string {
	return Version
}

// Full returns the version with build metadata and toolchain details.
func Full() string {
	return fmt.Sprintf("matchgraph %s (commit %s, built %s, %s %s/%s)",
		Version, Commit, Date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
