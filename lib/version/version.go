// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build version information for the city
// binaries' --version flag.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is the release version, injected at build time via
// -ldflags. "dev" for local builds.
var Version = "dev"

// Print writes the binary name, version, and VCS revision (when the
// build embeds one) to stdout.
func Print(binary string) {
	revision := ""
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				revision = setting.Value
			}
		}
	}
	if revision != "" {
		fmt.Printf("%s %s (%s)\n", binary, Version, revision)
		return
	}
	fmt.Printf("%s %s\n", binary, Version)
}
