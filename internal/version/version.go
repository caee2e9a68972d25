// Package version holds the release version stamped into builds.
package version

// Version is overridden at link time with -ldflags "-X cvelib/internal/version.Version=...".
var Version = "1.0.0"

// Generator is the default x_generator engine string written into records.
func Generator() string { return "cvelib " + Version }

// UserAgent is sent with every CVE Services request.
func UserAgent() string { return "cvelib-go/" + Version }
