package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Info holds structured build information suitable for JSON serialization.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
}

// GetInfo returns the current build information. When the binary was built
// without ldflags but installed with `go install module@version`, the module
// version is used instead of "dev".
func GetInfo() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
	}
	if info.Version == "dev" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			info.Version = moduleVersion(bi, info.Version)
		}
	}
	return info
}

func moduleVersion(bi *debug.BuildInfo, fallback string) string {
	if bi == nil {
		return fallback
	}
	v := bi.Main.Version
	if v == "" || v == "(devel)" {
		return fallback
	}
	if len(v) > 1 && v[0] == 'v' {
		v = v[1:]
	}
	return v
}

// String returns a human-readable version string.
// Example: "stepper v1.2.0 (commit: a1b2c3d, built: 2026-02-17T10:00:00Z)"
func (i Info) String() string {
	return fmt.Sprintf("stepper v%s (commit: %s, built: %s)", i.Version, i.Commit, i.Date)
}
