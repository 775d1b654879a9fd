// Package version holds build information for repoedit.
package version

import "runtime/debug"

// Set at build time:
// go build -ldflags "-X repoedit/internal/version.Version=1.2.0 -X repoedit/internal/version.Commit=abc123"
var (
	Version   = "0.3.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns a short version string.
func Info() string {
	commit := Commit
	if commit == "unknown" {
		commit = vcsRevision()
	}
	if commit != "unknown" && len(commit) > 7 {
		return Version + " (" + commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "repoedit version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}

// vcsRevision reads the revision stamped by the go tool, if any.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value
		}
	}
	return "unknown"
}
