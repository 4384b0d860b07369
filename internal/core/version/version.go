// Package version provides information about the build version of the census tool.
package version

// BuildInfo holds version information about the build.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information. The version, commit, and date variables
// are intended to be set at build time using -ldflags.
func Info() BuildInfo {
	// Set via -ldflags "-X 'fshfinder/internal/core/version.version=v0.1.0'
	// -X 'fshfinder/internal/core/version.commit=abcd' -X 'fshfinder/internal/core/version.date=2025-09-02'"
	return BuildInfo{
		Service: "fshfinder",
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// UserAgent is sent on every forge request
func UserAgent() string {
	return "fshfinder/" + version + " (+https://github.com/search?q=extension%3Afsh)"
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
