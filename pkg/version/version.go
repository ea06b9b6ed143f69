// Package version exposes build identity injected at link time via
// -ldflags "-X github.com/portfolio-service/portfolio_service/pkg/version.Version=...".
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of the build, "dev" outside CI.
	Version = "dev"
	// Commit is the git revision the binary was built from.
	Commit = "unknown"
	// BuiltAt is the UTC build timestamp.
	BuiltAt = "unknown"
)

// Info is the payload served by the version endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuiltAt   string `json:"builtAt"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get snapshots the build identity of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuiltAt:   BuiltAt,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s (%s, built %s, %s, %s)",
		i.Version, i.Commit, i.BuiltAt, i.GoVersion, i.Platform)
}
