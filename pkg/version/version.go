// Copyright (c) The Thanos Authors.
// Licensed under the Apache License, Version 2.0.

package version

import (
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	promversion "github.com/prometheus/common/version"
)

const Program = "column-codec"

// Build information. Populated at build-time.
var (
	Version   = "unknown"
	Revision  = "unknown"
	Branch    = "unknown"
	BuildUser = "unknown"
	BuildDate = "unknown"
)

// Print returns version information for the column-codec binary.
func Print() string {
	return promversion.Print(Program)
}

// Collector exposes build information as a column_codec_build_info gauge.
func Collector() prometheus.Collector {
	return versioncollector.NewCollector("column_codec")
}

// Short returns the version, falling back to the module version of the build.
func Short() string {
	if Version != "unknown" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "unknown"
}

func revision() string {
	if Revision != "unknown" {
		return Revision
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value[:min(len(s.Value), 7)]
			}
		}
	}
	return "unknown"
}

func init() {
	promversion.Version = Short()
	promversion.Revision = revision()
	promversion.Branch = Branch
	promversion.BuildUser = BuildUser
	promversion.BuildDate = BuildDate
}
