// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package routing

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/MadBomber/smart-message-demos/lib/schema"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolveNoEdgeReturnsName(t *testing.T) {
	table := NewTable(StaticLiveSet{"water": true}, quietLogger())
	if got := table.Resolve("water"); got != "water" {
		t.Errorf("Resolve(water) = %q, want water", got)
	}
}

func TestResolveFollowsChain(t *testing.T) {
	table := NewTable(StaticLiveSet{"c": true}, quietLogger())
	table.Apply(schema.DepartmentChangeNotification{
		ChangeType:     schema.ChangeTypeConsolidated,
		RoutingChanges: map[string]string{"a": "b"},
	})
	table.Apply(schema.DepartmentChangeNotification{
		ChangeType:     schema.ChangeTypeConsolidated,
		RoutingChanges: map[string]string{"b": "c"},
	})

	if got := table.Resolve("a"); got != "c" {
		t.Errorf("Resolve(a) = %q, want c", got)
	}
	if got := table.Resolve("b"); got != "c" {
		t.Errorf("Resolve(b) = %q, want c", got)
	}
}

func TestResolveCycleTerminates(t *testing.T) {
	table := NewTable(StaticLiveSet{"a": true, "b": true}, quietLogger())
	table.Apply(schema.DepartmentChangeNotification{
		ChangeType:     schema.ChangeTypeConsolidated,
		RoutingChanges: map[string]string{"a": "b", "b": "a"},
	})

	got := table.Resolve("a")
	if got != "a" && got != "b" {
		t.Errorf("Resolve(a) in cycle = %q, want a or b", got)
	}
}

func TestResolveSelfLoopTerminates(t *testing.T) {
	table := NewTable(StaticLiveSet{"a": true}, quietLogger())
	table.Apply(schema.DepartmentChangeNotification{
		ChangeType:     schema.ChangeTypeRenamed,
		RoutingChanges: map[string]string{"a": "a"},
	})

	if got := table.Resolve("a"); got != "a" {
		t.Errorf("Resolve(a) with self-loop = %q, want a", got)
	}
}

func TestResolveFallbackWhenTargetDead(t *testing.T) {
	// water was terminated; its traffic goes to public-works. The
	// recorded target is dead, so the fallback for the original name
	// wins.
	table := NewTable(StaticLiveSet{"public-works": true}, quietLogger())
	table.Apply(schema.DepartmentChangeNotification{
		ChangeType:          schema.ChangeTypeTerminated,
		AffectedDepartments: []string{"water"},
		RoutingChanges:      map[string]string{"water": "utilities"},
		FallbackDepartment:  "public-works",
	})

	if got := table.Resolve("water"); got != "public-works" {
		t.Errorf("Resolve(water) = %q, want fallback public-works", got)
	}
}

func TestResolveIgnoresDeadFallback(t *testing.T) {
	// water was terminated with public-works as its fallback, but
	// public-works has since left the live set. A dead department is
	// never handed out as a fallback target; resolution returns the
	// chain's end and the caller escalates.
	table := NewTable(StaticLiveSet{}, quietLogger())
	table.Apply(schema.DepartmentChangeNotification{
		ChangeType:          schema.ChangeTypeTerminated,
		AffectedDepartments: []string{"water"},
		RoutingChanges:      map[string]string{"water": "utilities"},
		FallbackDepartment:  "public-works",
	})

	if got := table.Resolve("water"); got != "utilities" {
		t.Errorf("Resolve(water) = %q, want utilities", got)
	}
}

func TestResolveDeadTargetWithoutFallback(t *testing.T) {
	table := NewTable(StaticLiveSet{}, quietLogger())
	table.Apply(schema.DepartmentChangeNotification{
		ChangeType:     schema.ChangeTypeConsolidated,
		RoutingChanges: map[string]string{"a": "b"},
	})

	// No fallback recorded: the dead target is returned as-is and
	// the caller escalates.
	if got := table.Resolve("a"); got != "b" {
		t.Errorf("Resolve(a) = %q, want b", got)
	}
}

func TestApplyIdempotent(t *testing.T) {
	change := schema.DepartmentChangeNotification{
		ChangeType:          schema.ChangeTypeConsolidated,
		AffectedDepartments: []string{"water", "utilities"},
		NewDepartment:       "water-utilities",
		RoutingChanges: map[string]string{
			"water":     "water-utilities",
			"utilities": "water-utilities",
		},
	}
	live := StaticLiveSet{"water-utilities": true}

	once := NewTable(live, quietLogger())
	once.Apply(change)

	twice := NewTable(live, quietLogger())
	twice.Apply(change)
	twice.Apply(change)

	for _, name := range []string{"water", "utilities", "water-utilities", "unrelated"} {
		if a, b := once.Resolve(name), twice.Resolve(name); a != b {
			t.Errorf("Resolve(%s) differs: once=%q twice=%q", name, a, b)
		}
	}
}

func TestApplyCreatedClearsStaleEdge(t *testing.T) {
	table := NewTable(StaticLiveSet{"water": true, "public-works": true}, quietLogger())
	table.Apply(schema.DepartmentChangeNotification{
		ChangeType:          schema.ChangeTypeTerminated,
		AffectedDepartments: []string{"water"},
		RoutingChanges:      map[string]string{"water": "public-works"},
		FallbackDepartment:  "public-works",
	})
	table.Apply(schema.DepartmentChangeNotification{
		ChangeType:          schema.ChangeTypeCreated,
		AffectedDepartments: []string{"water"},
		NewDepartment:       "water",
	})

	if got := table.Resolve("water"); got != "water" {
		t.Errorf("Resolve(water) after re-creation = %q, want water", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	live := StaticLiveSet{"water-utilities": true}
	table := NewTable(live, quietLogger())
	table.Apply(schema.DepartmentChangeNotification{
		ChangeType:          schema.ChangeTypeConsolidated,
		AffectedDepartments: []string{"water", "utilities"},
		NewDepartment:       "water-utilities",
		RoutingChanges: map[string]string{
			"water":     "water-utilities",
			"utilities": "water-utilities",
		},
		FallbackDepartment: "public-works",
	})

	path := filepath.Join(t.TempDir(), "routing.cbor")
	if err := table.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := NewTable(live, quietLogger())
	if err := restored.Restore(path); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	for _, name := range []string{"water", "utilities", "water-utilities"} {
		if a, b := table.Resolve(name), restored.Resolve(name); a != b {
			t.Errorf("Resolve(%s) differs after restore: %q vs %q", name, a, b)
		}
	}
}

func TestRestoreMissingFileIsClean(t *testing.T) {
	table := NewTable(StaticLiveSet{}, quietLogger())
	if err := table.Restore(filepath.Join(t.TempDir(), "absent.cbor")); err != nil {
		t.Fatalf("Restore of missing file: %v", err)
	}
	if len(table.Edges()) != 0 {
		t.Error("restore of missing file populated edges")
	}
}
