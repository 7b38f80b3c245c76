package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set through -ldflags "-X github.com/AlienServices/unfurl/internal/version.Version=...".
var (
	Version   = "dev"             // ex: v0.1.0
	Commit    = ""                // ex: abcd123
	BuildDate = ""                // ex: 2025-08-11T18:42:00Z
	GoVersion = runtime.Version() // go version
)

func init() {
	if Commit != "" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		Commit = "none"
		return
	}
	Commit = "none"
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) > 7 {
				Commit = s.Value[:7]
			} else {
				Commit = s.Value
			}
		case "vcs.time":
			if BuildDate == "" {
				BuildDate = s.Value
			}
		}
	}
}

// Info is the one-line build description.
func Info() string {
	return fmt.Sprintf("unfurl %s (commit=%s, built=%s, go=%s)", Version, Commit, BuildDate, GoVersion)
}
