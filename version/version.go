package version

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"github.com/teranos/citykit/errors"
)

// Build information. These variables are set at build time via ldflags.
var (
	// CommitHash is the git commit hash when the binary was built
	CommitHash = "dev"

	// BuildTime is when the binary was built
	BuildTime = "unknown"

	// Version is the semantic version (if tagged)
	Version = "dev"
)

// Info contains version and build information
type Info struct {
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the current version information
func Get() Info {
	return Info{
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Version:    Version,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a human-readable version string
func (i Info) String() string {
	if i.Version != "dev" {
		return fmt.Sprintf("citykit %s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildTime)
	}
	return fmt.Sprintf("citykit dev (commit %s, built %s)", i.CommitHash, i.BuildTime)
}

// Short returns a short version string with just the commit hash
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}

// ToolVersion identifies the editor driving a migration. Program changes
// are breaking; Feature changes add capabilities a core may depend on.
type ToolVersion struct {
	Program int `json:"program" mapstructure:"program_version"`
	Feature int `json:"feature" mapstructure:"feature_version"`
}

func (v ToolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Program, v.Feature)
}

// ParseToolVersion reads "program.feature" (e.g. "3.2"). A bare "3" means
// feature 0; a patch component is accepted and ignored.
func ParseToolVersion(s string) (ToolVersion, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return ToolVersion{}, errors.Wrapf(err, "invalid tool version %q", s)
	}
	if v.Prerelease() != "" {
		return ToolVersion{}, errors.WithHint(
			errors.Newf("invalid tool version %q: pre-release suffix", s),
			"use program.feature, e.g. 3.2")
	}
	return ToolVersion{Program: int(v.Major()), Feature: int(v.Minor())}, nil
}
