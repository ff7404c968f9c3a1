// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package routing

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MadBomber/smart-message-demos/lib/codec"
)

// snapshot is the on-disk form of a routing mirror. A consumer that
// restarts between change broadcasts reloads it instead of waiting to
// re-observe every historical change.
type snapshot struct {
	Edges     map[string]string `cbor:"edges"`
	Fallbacks map[string]string `cbor:"fallbacks"`
	SavedAt   time.Time         `cbor:"saved_at"`
}

// Save atomically writes the table to path: temporary file in the
// same directory, fsync, rename. Readers never see a partial
// snapshot.
func (t *Table) Save(path string) error {
	t.mu.Lock()
	state := snapshot{
		Edges:     make(map[string]string, len(t.edges)),
		Fallbacks: make(map[string]string, len(t.fallbacks)),
		SavedAt:   time.Now(),
	}
	for source, target := range t.edges {
		state.Edges[source] = target
	}
	for name, fallback := range t.fallbacks {
		state.Fallbacks[name] = fallback
	}
	t.mu.Unlock()

	data, err := codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling routing snapshot: %w", err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary snapshot file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary snapshot file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary snapshot file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary snapshot file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming snapshot file into place: %w", err)
	}

	// Sync the parent directory so the rename survives power loss.
	if parentDirectory, err := os.Open(filepath.Dir(path)); err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}
	return nil
}

// Restore replaces the table contents from a snapshot file. A
// missing file is a normal first start and leaves the table empty.
func (t *Table) Restore(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading routing snapshot: %w", err)
	}

	var state snapshot
	if err := codec.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("parsing routing snapshot %s: %w", path, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.edges = make(map[string]string, len(state.Edges))
	for source, target := range state.Edges {
		t.edges[source] = target
	}
	t.fallbacks = make(map[string]string, len(state.Fallbacks))
	for name, fallback := range state.Fallbacks {
		t.fallbacks[name] = fallback
	}
	return nil
}
