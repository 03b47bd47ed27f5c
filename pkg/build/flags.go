// SPDX-License-Identifier: MIT
//
// Package build carries the metadata embedded into the binary at link time:
//
//	go build -ldflags "-X audiostream/pkg/build.buildName=audiostream \
//	  -X audiostream/pkg/build.buildTime=$(date -u +%FT%TZ) \
//	  -X audiostream/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X audiostream/pkg/build.buildVersion=0.1.0"
//
// Binaries built without the flags (go run, tests) fall back to
// development values through InitializeOrDevelopment.
package build

import (
	"errors"
	"fmt"
)

// Info is the build metadata reported by the CLI.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

const description = "Streaming audio processing engine"

// Package-level variables for build information. These are populated by -ldflags
// during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &Info{
		Name:        "unknown",
		Description: description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "unknown",
	}
)

// Development is the metadata used when no ldflags were supplied.
var Development = Info{
	Name:        "audiostream",
	Description: description,
	Time:        "unknown",
	Commit:      "none",
	Version:     "dev",
}

// Initialize validates and copies build information from ldflags variables.
// Returns an error if any required build flag is missing.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// InitializeOrDevelopment runs Initialize and installs Development when
// the binary was built without ldflags. The Initialize error is returned so
// callers can report it.
func InitializeOrDevelopment() error {
	err := Initialize()
	if err != nil {
		*buildFlags = Development
		return errors.Join(errors.New("build flags missing, using development values"), err)
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildFlags
}

// String formats the build information for version output.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
