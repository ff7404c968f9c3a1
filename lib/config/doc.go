// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the city binaries.
//
// Configuration is loaded from a single YAML file specified by:
//   - CITYSCAPE_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. Every policy number
// (restart budget, silence window, council thresholds) lives here with
// a documented default; none of them is a hardcoded constant in the
// orchestration core.
//
// The file may contain environment-specific sections (development,
// staging, production) that override base values when the environment
// matches.
package config
