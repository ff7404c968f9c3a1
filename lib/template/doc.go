// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Package template loads declarative department templates. Templates
// are authored on disk as JSONC files (JSON extended with comments and
// trailing commas), one per department, naming the department, its
// category, the capabilities it serves, and the command that launches
// its process.
//
// Template generation itself (YAML-driven authoring tools) is an
// external collaborator; this package only reads the result.
package template
