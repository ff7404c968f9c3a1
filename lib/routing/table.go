// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package routing

import (
	"log/slog"
	"sync"

	"github.com/MadBomber/smart-message-demos/lib/schema"
)

// LiveSet answers whether a department is currently live (tracked and
// not permanently failed). The orchestrator backs it with the
// supervisor; consumers back it with their announcement mirror.
type LiveSet interface {
	Contains(name string) bool
}

// StaticLiveSet is a fixed LiveSet for tests and for consumers that
// rebuild membership from announcements.
type StaticLiveSet map[string]bool

// Contains reports membership.
func (s StaticLiveSet) Contains(name string) bool { return s[name] }

// Table is one consumer's mutable routing mirror. All access is
// serialized by a single mutex; resolution never follows an edge set
// that is mid-mutation.
type Table struct {
	mu sync.Mutex

	// edges maps a source department to the target that should
	// receive its traffic.
	edges map[string]string

	// fallbacks maps a department to the department that absorbs
	// its traffic when its resolved target is not live.
	fallbacks map[string]string

	live   LiveSet
	logger *slog.Logger
}

// NewTable returns an empty table over the given live set.
func NewTable(live LiveSet, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		edges:     make(map[string]string),
		fallbacks: make(map[string]string),
		live:      live,
		logger:    logger,
	}
}

// Apply merges a change notification into the table. Idempotent:
// edge and fallback insertion is a set-union, so re-delivery of the
// same notification is a no-op. A "created" change first removes any
// outgoing edge from the created names, so a re-created name receives
// its own traffic again; routing changes carried by the notification
// are applied after the removal.
func (t *Table) Apply(change schema.DepartmentChangeNotification) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if change.ChangeType == schema.ChangeTypeCreated {
		if change.NewDepartment != "" {
			delete(t.edges, change.NewDepartment)
		}
		for _, name := range change.AffectedDepartments {
			delete(t.edges, name)
		}
	}

	for source, target := range change.RoutingChanges {
		if previous, exists := t.edges[source]; exists && previous != target {
			t.logger.Warn("routing change overrides existing edge",
				"source", source,
				"previous", previous,
				"target", target,
			)
		}
		t.edges[source] = target
	}

	if change.FallbackDepartment != "" {
		for _, name := range change.AffectedDepartments {
			t.fallbacks[name] = change.FallbackDepartment
		}
	}
}

// Resolve maps a logical department name to the department that
// should receive its traffic right now.
//
// Resolution follows redirection edges transitively with a visited
// set. The edge graph is never trusted to be acyclic: conflicting
// concurrent updates can close a loop, so a revisited name stops the
// walk and resolution returns the last name reached before re-entry.
// If the final target is not live and the original name has a live
// fallback, the fallback wins. A dead department is never returned as
// a fallback target: a fallback that has itself left the live set is
// ignored and resolution returns the chain's end.
func (t *Table) Resolve(name string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	visited := make(map[string]bool)
	current := name
	previous := name
	for {
		target, exists := t.edges[current]
		if !exists {
			break
		}
		if visited[current] {
			t.logger.Warn("routing cycle detected",
				"name", name,
				"cycle_at", current,
			)
			current = previous
			break
		}
		visited[current] = true
		previous = current
		current = target
	}

	if !t.live.Contains(current) {
		if fallback, exists := t.fallbacks[name]; exists && t.live.Contains(fallback) {
			return fallback
		}
	}
	return current
}

// Edges returns a copy of the current edge set.
func (t *Table) Edges() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	edges := make(map[string]string, len(t.edges))
	for source, target := range t.edges {
		edges[source] = target
	}
	return edges
}
