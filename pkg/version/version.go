// Package version exposes build metadata injected at link time.
package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/NERVsystems/arogyajal/pkg/version.BuildVersion=..."
var (
	BuildVersion = "0.1.0"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

// Info returns build metadata keyed by version, go_version, commit and build_date.
func Info() map[string]string {
	return map[string]string{
		"version":    BuildVersion,
		"go_version": runtime.Version(),
		"commit":     BuildCommit,
		"build_date": BuildDate,
	}
}

// String renders the version line printed by --version.
func String() string {
	return fmt.Sprintf("arogyajal %s (commit %s, built %s, %s)",
		BuildVersion, BuildCommit, BuildDate, runtime.Version())
}
