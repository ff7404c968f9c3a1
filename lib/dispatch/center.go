// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/MadBomber/smart-message-demos/lib/bus"
	"github.com/MadBomber/smart-message-demos/lib/routing"
	"github.com/MadBomber/smart-message-demos/lib/schema"
)

// Mirror is the dispatch center's local view of which departments are
// live and what each one serves, rebuilt from announcements and
// change notifications. It satisfies both the routing live set and
// the router's directory.
type Mirror struct {
	mu sync.Mutex

	live map[string]bool

	// serving maps a category or capability to the departments
	// covering it.
	serving map[string][]string
}

// NewMirror returns an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{
		live:    make(map[string]bool),
		serving: make(map[string][]string),
	}
}

// Contains reports whether a department is live.
func (m *Mirror) Contains(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[name]
}

// Serving returns the departments covering a category, sorted.
func (m *Mirror) Serving(category string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.serving[category]))
	copy(names, m.serving[category])
	return names
}

// OnAnnouncement adds an announced department to the live set and
// records its coverage.
func (m *Mirror) OnAnnouncement(announcement schema.DepartmentAnnouncement) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := announcement.DepartmentName
	m.live[name] = true

	covered := append([]string{announcement.Category}, announcement.Capabilities...)
	for _, entry := range covered {
		if entry == "" || m.covers(entry, name) {
			continue
		}
		m.serving[entry] = append(m.serving[entry], name)
		sort.Strings(m.serving[entry])
	}
}

// OnChange updates the live set for structural changes. Terminated
// and consolidated departments leave the live set; the consolidated
// successor arrives through its own announcement.
func (m *Mirror) OnChange(change schema.DepartmentChangeNotification) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch change.ChangeType {
	case schema.ChangeTypeTerminated, schema.ChangeTypeConsolidated:
		for _, name := range change.AffectedDepartments {
			delete(m.live, name)
		}
	case schema.ChangeTypeCreated:
		if change.NewDepartment != "" {
			m.live[change.NewDepartment] = true
		}
	}
}

// covers reports whether name is already recorded under entry.
// Caller must hold m.mu.
func (m *Mirror) covers(entry, name string) bool {
	for _, existing := range m.serving[entry] {
		if existing == name {
			return true
		}
	}
	return false
}

// CenterOptions wires a Center around an already-connected mirror,
// table, and router.
type CenterOptions struct {
	Mirror *Mirror
	Table  *routing.Table
	Router *Router

	// SnapshotPath persists the routing mirror after each applied
	// change. Empty disables snapshots.
	SnapshotPath string

	Logger *slog.Logger
}

// Center answers the dispatch center's inbound messages through a
// closed handler table built at construction.
type Center struct {
	mirror *Mirror
	table  *routing.Table
	router *Router

	snapshotPath string

	handlers map[string]bus.Handler

	// inflight tracks request goroutines so shutdown can drain them.
	inflight sync.WaitGroup

	logger *slog.Logger
}

// NewCenter returns a Center with its handler table built.
func NewCenter(options CenterOptions) *Center {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	c := &Center{
		mirror:       options.Mirror,
		table:        options.Table,
		router:       options.Router,
		snapshotPath: options.SnapshotPath,
		logger:       options.Logger,
	}
	c.handlers = map[string]bus.Handler{
		schema.MessageTypeChange:         c.handleChange,
		schema.MessageTypeAnnouncement:   c.handleAnnouncement,
		schema.MessageTypeServiceRequest: c.handleRequest,
	}
	return c
}

// dispatchEnvelope routes one inbound envelope through the handler
// table, dropping unhandled types with a warning.
func (c *Center) dispatchEnvelope(ctx context.Context, envelope bus.Envelope) {
	handler, ok := c.handlers[envelope.Type]
	if !ok {
		c.logger.Warn("dropping unhandled message",
			"type", envelope.Type,
			"sender", envelope.Sender,
		)
		return
	}
	handler(ctx, envelope)
}

// Start restores the routing snapshot and subscribes the handlers.
// The returned stop function removes the subscriptions. Start returns
// once the center is receiving, so a caller can sequence other
// components after it on the same bus.
func (c *Center) Start(messageBus bus.Bus) (stop func()) {
	if c.snapshotPath != "" {
		if err := c.table.Restore(c.snapshotPath); err != nil {
			c.logger.Warn("restoring routing snapshot failed",
				"path", c.snapshotPath,
				"error", err,
			)
		}
	}

	var cancels []func()
	for _, channel := range []string{schema.ChannelChanges, schema.ChannelDispatch} {
		cancels = append(cancels, messageBus.Subscribe(channel, c.dispatchEnvelope))
	}

	c.logger.Info("dispatch center running", "snapshot", c.snapshotPath)
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// Run starts the center and blocks until the context is cancelled,
// then drains in-flight requests.
func (c *Center) Run(ctx context.Context, messageBus bus.Bus) error {
	stop := c.Start(messageBus)
	defer stop()

	<-ctx.Done()

	c.logger.Info("dispatch center draining")
	c.Drain()
	return nil
}

// Drain waits for every in-flight request goroutine to finish.
func (c *Center) Drain() {
	c.inflight.Wait()
}

// handleChange applies a change notification to the mirror and the
// routing table, then snapshots.
func (c *Center) handleChange(_ context.Context, envelope bus.Envelope) {
	change, err := schema.Decode[schema.DepartmentChangeNotification](envelope)
	if err != nil {
		c.logger.Warn("dropping malformed change", "error", err)
		return
	}

	c.mirror.OnChange(change)
	c.router.OnChange(change)
	c.snapshot()

	c.logger.Info("routing change applied",
		"change_type", change.ChangeType,
		"affected", change.AffectedDepartments,
	)
}

// handleAnnouncement records a new department in the mirror.
func (c *Center) handleAnnouncement(_ context.Context, envelope bus.Envelope) {
	announcement, err := schema.Decode[schema.DepartmentAnnouncement](envelope)
	if err != nil {
		c.logger.Warn("dropping malformed announcement", "error", err)
		return
	}
	c.mirror.OnAnnouncement(announcement)
}

// handleRequest routes one service request. Routing can block on a
// creation wait, so each request runs in its own goroutine; the
// message path is never held up by a slow department creation.
func (c *Center) handleRequest(ctx context.Context, envelope bus.Envelope) {
	req, err := schema.Decode[schema.ServiceRequest](envelope)
	if err != nil {
		c.logger.Warn("dropping malformed service request", "error", err)
		return
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		targets, err := c.router.Dispatch(ctx, req)
		if err != nil {
			c.logger.Error("request undeliverable",
				"request_id", req.RequestID,
				"requester", req.RequestingService,
				"error", err,
			)
			return
		}
		c.logger.Info("request dispatched",
			"request_id", req.RequestID,
			"targets", targets,
		)
	}()
}

// snapshot persists the routing table, logging failures. A failed
// snapshot costs recovery fidelity, not correctness.
func (c *Center) snapshot() {
	if c.snapshotPath == "" {
		return
	}
	if err := c.table.Save(c.snapshotPath); err != nil {
		c.logger.Error("saving routing snapshot failed",
			"path", c.snapshotPath,
			"error", err,
		)
	}
}
