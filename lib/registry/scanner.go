// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"github.com/MadBomber/smart-message-demos/lib/template"
)

// Scanner enumerates deployable departments. Implementations must be
// safe for repeated calls: the orchestrator scans on every
// supervision cycle to pick up newly authored templates.
type Scanner interface {
	// Scan returns the current set of deployable department
	// templates.
	Scan() ([]*template.Template, error)
}

// TemplateScanner scans a department template directory.
type TemplateScanner struct {
	// Dir is the template directory.
	Dir string
}

// Scan loads every template in Dir.
func (s *TemplateScanner) Scan() ([]*template.Template, error) {
	return template.LoadDir(s.Dir)
}

// StaticScanner returns a fixed template set. Used by tests and by
// single-process demo mode.
type StaticScanner struct {
	Templates []*template.Template
}

// Scan returns the fixed set.
func (s *StaticScanner) Scan() ([]*template.Template, error) {
	return s.Templates, nil
}
