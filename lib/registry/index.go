// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"sort"
	"sync"

	"github.com/MadBomber/smart-message-demos/lib/template"
)

// Index is a queryable view of the scanned templates: name lookups
// and capability coverage. The orchestrator
// rebuilds it after each scan; readers may query it concurrently.
type Index struct {
	mu           sync.Mutex
	byName       map[string]*template.Template
	byCapability map[string][]string
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	index := &Index{}
	index.Rebuild(nil)
	return index
}

// Rebuild replaces the index contents with the given templates.
func (i *Index) Rebuild(templates []*template.Template) {
	byName := make(map[string]*template.Template, len(templates))
	byCapability := make(map[string][]string)

	for _, tpl := range templates {
		byName[tpl.Name] = tpl
		byCapability[tpl.Category] = append(byCapability[tpl.Category], tpl.Name)
		for _, capability := range tpl.Capabilities {
			if capability == tpl.Category {
				continue
			}
			byCapability[capability] = append(byCapability[capability], tpl.Name)
		}
	}
	for _, names := range byCapability {
		sort.Strings(names)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.byName = byName
	i.byCapability = byCapability
}

// Template returns the template for a department name, or nil when
// the name is not deployable.
func (i *Index) Template(name string) *template.Template {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.byName[name]
}

// CategoryOf returns the category of a department, or "" for unknown
// names.
func (i *Index) CategoryOf(name string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if tpl, ok := i.byName[name]; ok {
		return tpl.Category
	}
	return ""
}

// CapabilitiesOf returns the capabilities a department serves, or nil
// for unknown names.
func (i *Index) CapabilitiesOf(name string) []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	tpl, ok := i.byName[name]
	if !ok {
		return nil
	}
	capabilities := make([]string, len(tpl.Capabilities))
	copy(capabilities, tpl.Capabilities)
	return capabilities
}

// Serving returns the department names whose category or capabilities
// cover the given request category, sorted.
func (i *Index) Serving(category string) []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	names := i.byCapability[category]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Names returns every indexed department name, sorted.
func (i *Index) Names() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	names := make([]string, 0, len(i.byName))
	for name := range i.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
