// Package version reports build metadata stamped in through -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Build-time variables. Override via -ldflags "-X github.com/aimaps/maps-relay/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "dev"
	BuildDate = "dev"
)

// Info describes build/version metadata.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
}

// Get returns version info, defaulting empty fields to "dev".
func Get() Info {
	return Info{
		Version:   defaultOr(Version, "dev"),
		Commit:    defaultOr(Commit, "dev"),
		BuildDate: defaultOr(BuildDate, "dev"),
		GoVersion: runtime.Version(),
	}
}

// String renders the info on one line for the version command.
func (i Info) String() string {
	return fmt.Sprintf("maps-relay %s (commit %s, built %s, %s)", i.Version, i.Commit, i.BuildDate, i.GoVersion)
}

func defaultOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
