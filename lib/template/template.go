// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
)

// Template describes one deployable department.
type Template struct {
	// Name is the unique logical department name.
	Name string `json:"name"`

	// Category groups departments for classification and fallback
	// selection (e.g. "policing", "utility", "health").
	Category string `json:"category"`

	// Capabilities lists the request categories this department can
	// serve. A department always serves its own Category; extra
	// capabilities widen it.
	Capabilities []string `json:"capabilities,omitempty"`

	// Command is the argv that launches the department process.
	Command []string `json:"command"`

	// Description is free-form documentation, unused by the runtime.
	Description string `json:"description,omitempty"`
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Template.
func Parse(data []byte) (*Template, error) {
	stripped := jsonc.ToJSON(data)

	var tpl Template
	if err := json.Unmarshal(stripped, &tpl); err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	return &tpl, nil
}

// ReadFile reads and parses one template file.
func ReadFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	tpl, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := tpl.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tpl, nil
}

// Validate checks the structural requirements of a template.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template has no name")
	}
	if strings.ContainsAny(t.Name, " /") {
		return fmt.Errorf("template name %q contains whitespace or '/'", t.Name)
	}
	if t.Category == "" {
		return fmt.Errorf("template %s has no category", t.Name)
	}
	if len(t.Command) == 0 {
		return fmt.Errorf("template %s has no launch command", t.Name)
	}
	return nil
}

// LoadDir loads every *.jsonc template in dir, sorted by department
// name. Duplicate department names across files are an error.
func LoadDir(dir string) ([]*Template, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.jsonc"))
	if err != nil {
		return nil, fmt.Errorf("listing templates in %s: %w", dir, err)
	}

	byName := make(map[string]string, len(matches))
	templates := make([]*Template, 0, len(matches))
	for _, path := range matches {
		tpl, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		if previous, exists := byName[tpl.Name]; exists {
			return nil, fmt.Errorf("duplicate department %q in %s and %s", tpl.Name, previous, path)
		}
		byName[tpl.Name] = path
		templates = append(templates, tpl)
	}

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Name < templates[j].Name
	})
	return templates, nil
}
