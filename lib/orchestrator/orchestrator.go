// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/MadBomber/smart-message-demos/lib/bus"
	"github.com/MadBomber/smart-message-demos/lib/clock"
	"github.com/MadBomber/smart-message-demos/lib/council"
	"github.com/MadBomber/smart-message-demos/lib/registry"
	"github.com/MadBomber/smart-message-demos/lib/routing"
	"github.com/MadBomber/smart-message-demos/lib/schema"
	"github.com/MadBomber/smart-message-demos/lib/supervisor"
)

// Options wires an Orchestrator. Every field is required except
// Logger.
type Options struct {
	Scanner    registry.Scanner
	Index      *registry.Index
	Supervisor *supervisor.Supervisor
	Health     *supervisor.HealthProtocol
	Evaluator  *council.Evaluator
	Dispatcher *council.Dispatcher
	Table      *routing.Table
	Bus        bus.Bus
	Clock      clock.Clock

	// Tick is the supervision cadence.
	Tick time.Duration

	// Sender is the logical name stamped on published envelopes.
	Sender string

	Logger *slog.Logger
}

// Orchestrator ties the registry scanner, the supervisor, the
// evaluator, and the notification dispatcher together on a fixed
// cadence and answers asynchronous department and council messages.
type Orchestrator struct {
	scanner    registry.Scanner
	index      *registry.Index
	supervisor *supervisor.Supervisor
	health     *supervisor.HealthProtocol
	evaluator  *council.Evaluator
	dispatcher *council.Dispatcher
	table      *routing.Table
	bus        bus.Bus
	clock      clock.Clock
	tick       time.Duration
	sender     string
	handlers   map[string]bus.Handler
	logger     *slog.Logger
}

// New returns an Orchestrator with its handler registry built.
func New(options Options) *Orchestrator {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	o := &Orchestrator{
		scanner:    options.Scanner,
		index:      options.Index,
		supervisor: options.Supervisor,
		health:     options.Health,
		evaluator:  options.Evaluator,
		dispatcher: options.Dispatcher,
		table:      options.Table,
		bus:        options.Bus,
		clock:      options.Clock,
		tick:       options.Tick,
		sender:     options.Sender,
		logger:     options.Logger,
	}
	o.handlers = o.handlerTable()
	return o
}

// Run subscribes the message handlers, performs the initial registry
// scan, and supervises on the tick cadence until the context is
// cancelled. On cancellation the supervisor drains first, so no new
// checks or restarts are issued, and the remaining processes are
// terminated synchronously before return.
func (o *Orchestrator) Run(ctx context.Context) error {
	for _, channel := range []string{schema.ChannelHealth, schema.ChannelCouncil, schema.ChannelDispatch} {
		cancel := o.bus.Subscribe(channel, o.dispatchEnvelope)
		defer cancel()
	}

	o.scan(ctx)
	o.supervisor.Tick(ctx)

	ticker := o.clock.NewTicker(o.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator shutting down")
			o.supervisor.Drain()
			o.supervisor.Shutdown()
			return nil
		case <-ticker.C:
			o.scan(ctx)
			o.supervisor.Tick(ctx)
		}
	}
}

// scan reloads the template registry and registers departments that
// appeared since the last scan. A scan failure keeps the previous
// index; supervision continues on stale data rather than stopping.
func (o *Orchestrator) scan(ctx context.Context) {
	templates, err := o.scanner.Scan()
	if err != nil {
		o.logger.Error("registry scan failed", "error", err)
		return
	}
	o.index.Rebuild(templates)

	for _, tpl := range templates {
		if o.supervisor.Tracked(tpl.Name) {
			continue
		}
		o.supervisor.Register(tpl.Name, tpl.Command)
		o.announce(ctx, tpl.Name)
	}
}

// announce broadcasts the created change and the announcement for a
// newly registered department.
func (o *Orchestrator) announce(ctx context.Context, name string) {
	change := schema.DepartmentChangeNotification{
		ChangeType:           schema.ChangeTypeCreated,
		AffectedDepartments:  []string{name},
		NewDepartment:        name,
		EffectiveImmediately: true,
	}
	o.table.Apply(change)
	o.publish(ctx, schema.ChannelChanges, change)

	o.publish(ctx, schema.ChannelChanges, schema.DepartmentAnnouncement{
		DepartmentName: name,
		Category:       o.index.CategoryOf(name),
		Capabilities:   o.index.CapabilitiesOf(name),
	})
}

// publish wraps and publishes one payload, logging failures instead
// of propagating them; the loop must survive a bad publish.
func (o *Orchestrator) publish(ctx context.Context, channel string, payload any) {
	envelope, err := schema.Envelope(o.sender, payload)
	if err != nil {
		o.logger.Error("wrapping payload failed", "error", err)
		return
	}
	if err := o.bus.Publish(ctx, channel, envelope); err != nil {
		o.logger.Error("publish failed", "channel", channel, "error", err)
	}
}
