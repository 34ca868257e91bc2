package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// ProductName is reported in the Server header and in the report banner.
const ProductName = "tlsprobe"

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/tlsprobe/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/tlsprobe/internal/version.Commit=abc123"
//
// Otherwise they are filled from the VCS stamp in the build info, or fall back
// to "dev" with a timestamp.
var (
	// Version is the semantic version of the application
	Version = ""
	// Commit is the git commit hash
	Commit = ""
)

func init() {
	if Version == "" || Commit == "" {
		populateFromBuildInfo()
	}

	if Version == "" {
		Version = fmt.Sprintf("dev-%s", time.Now().Format("20060102-150405"))
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// populateFromBuildInfo reads vcs.revision, vcs.modified and vcs.time from the
// embedded build info.
func populateFromBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	var vcsRevision, vcsModified, vcsTime string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			vcsRevision = setting.Value
		case "vcs.modified":
			vcsModified = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		}
	}

	if Commit == "" && vcsRevision != "" {
		if len(vcsRevision) > 7 {
			Commit = vcsRevision[:7]
		} else {
			Commit = vcsRevision
		}
		if vcsModified == "true" {
			Commit += "-dirty"
		}
	}

	// Module versions are only meaningful for `go install pkg@version` builds.
	if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	if Version == "" && vcsTime != "" {
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			Version = fmt.Sprintf("dev-%s", t.Format("20060102"))
		}
	}
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Product returns the product identifier, e.g. "tlsprobe v1.2.3".
func Product() string {
	return ProductName + " " + Version
}
