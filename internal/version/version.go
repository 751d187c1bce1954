// Package version reports the build version of the rollcall binary.
package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/rollcall"

// buildVersion is set via -ldflags "-X pkt.systems/rollcall/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running binary.
type Info struct {
	Module    string `json:"module"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

// Get returns the module, version (with dirty marker) and Go toolchain version.
func Get() Info {
	return Info{
		Module:    Module(),
		Version:   CurrentWithDirty(),
		GoVersion: runtime.Version(),
	}
}

// Current returns the best available version string without the dirty marker.
func Current() string {
	return fromBuildInfo(false)
}

// CurrentWithDirty is Current with a "+dirty" suffix for modified checkouts.
func CurrentWithDirty() string {
	return fromBuildInfo(true)
}

// Module returns the main module path from build info when available.
func Module() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}

func fromBuildInfo(dirty bool) string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return trimDirty(v, dirty)
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return trimDirty(v, dirty)
		}
		if v := pseudoVersion(info, dirty); v != "" {
			return v
		}
	}
	return "v0.0.0-unknown"
}

func trimDirty(v string, dirty bool) string {
	if dirty {
		return v
	}
	return strings.TrimSuffix(v, "+dirty")
}

// pseudoVersion builds a Go-style pseudo version from VCS stamping.
func pseudoVersion(info *debug.BuildInfo, dirty bool) string {
	if info == nil {
		return ""
	}
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	revision, stamp := settings["vcs.revision"], settings["vcs.time"]
	if revision == "" || stamp == "" {
		return ""
	}
	when, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return ""
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	v := "v0.0.0-" + when.UTC().Format("20060102150405") + "-" + revision
	if dirty && settings["vcs.modified"] == "true" {
		v += "+dirty"
	}
	return v
}
