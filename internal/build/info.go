// Package build carries version information stamped at link time.
package build

import (
	"fmt"
	"runtime"
	"strings"

	_ "embed"
)

//go:embed VERSION
var rawVersion []byte

// Set with -ldflags "-X github.com/looplj/firelive/internal/build.Version=...".
var (
	Version   = ""
	Commit    = ""
	BuildTime = ""
)

//nolint:gochecknoinits // version fallback.
func init() {
	if Version == "" {
		Version = strings.TrimSpace(string(rawVersion))
	}
}

// Info is the version report printed by `firelive version`.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit,omitempty" yaml:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty" yaml:"build_time,omitempty"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

func GetBuildInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (i Info) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "firelive %s", i.Version)

	if i.Commit != "" {
		fmt.Fprintf(&sb, " (%s)", i.Commit)
	}

	if i.BuildTime != "" {
		fmt.Fprintf(&sb, " built %s", i.BuildTime)
	}

	fmt.Fprintf(&sb, " %s %s", i.GoVersion, i.Platform)

	return sb.String()
}
