// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata embedded with -ldflags at link time:
//
//	go build -ldflags "-X breakfast/pkg/build.buildName=breakfast \
//	  -X breakfast/pkg/build.buildVersion=v0.3.0 ..."
//
// Development builds carry no ldflags; they run with placeholder values and
// Initialize reports which fields were missing.
package build

import (
	"errors"
	"fmt"
)

const (
	DefaultName        = "breakfast"
	DefaultDescription = "Audio-reactive pulse visualizer backend"
	unknown            = "unknown"
)

// Info is the build metadata of the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Set with -ldflags -X.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() Info {
	return Info{
		Name:        DefaultName,
		Description: DefaultDescription,
		Time:        unknown,
		Commit:      unknown,
		Version:     "dev",
	}
}

// Initialize copies the ldflags values into the build info. Every missing
// flag keeps its placeholder and is named in the returned error, which is
// informational: the binary is usable either way.
func Initialize() error {
	buildInfo = defaultInfo()
	var errs []error
	set := func(field string, src string, dst *string) {
		if src == "" {
			errs = append(errs, fmt.Errorf("%s is required", field))
			return
		}
		*dst = src
	}
	set("BuildName", buildName, &buildInfo.Name)
	set("BuildTime", buildTime, &buildInfo.Time)
	set("BuildCommit", buildCommit, &buildInfo.Commit)
	set("BuildVersion", buildVersion, &buildInfo.Version)
	return errors.Join(errs...)
}

// Get returns the current build information.
func Get() Info {
	return buildInfo
}

// String formats the info for --version output.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
