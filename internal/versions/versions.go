// Package versions provides build version information for the agent.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

const unknownStr = "unknown"

// Set by the build using -ldflags.
var (
	// Version is the agent version.
	Version = "dev"
	// Commit is the git commit hash of the build.
	Commit = unknownStr
	// BuildDate is when the binary was built.
	BuildDate = unknownStr
)

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the version information. Development builds without
// ldflags fall back to the VCS metadata stamped by the Go toolchain.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	if info.Version == "dev" {
		if build, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range build.Settings {
				switch setting.Key {
				case "vcs.revision":
					if info.Commit == unknownStr {
						info.Commit = setting.Value
					}
				case "vcs.time":
					if info.BuildDate == unknownStr {
						info.BuildDate = setting.Value
					}
				}
			}
		}
		// Manufacture a version from the commit so two dev builds are
		// distinguishable.
		info.Version = fmt.Sprintf("build-%.8s", info.Commit)
	}

	if info.BuildDate != unknownStr {
		if t, err := time.Parse(time.RFC3339, info.BuildDate); err == nil {
			info.BuildDate = t.Format("2006-01-02 15:04:05 MST")
		}
	}

	return info
}
