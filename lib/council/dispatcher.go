// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package council

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MadBomber/smart-message-demos/lib/bus"
	"github.com/MadBomber/smart-message-demos/lib/config"
	"github.com/MadBomber/smart-message-demos/lib/routing"
	"github.com/MadBomber/smart-message-demos/lib/schema"
)

// Publisher is the slice of the message bus the dispatcher needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, envelope bus.Envelope) error
}

// Directory exposes the registry lookups needed when rewriting
// routing for a structural change.
type Directory interface {
	CategoryOf(name string) string
	CapabilitiesOf(name string) []string
}

// Dispatcher converts approved council decisions into
// DepartmentChangeNotification broadcasts. Every routing-aware
// consumer applies the same notification, so the full set of routing
// and capability remaps is assembled here, once.
type Dispatcher struct {
	live      routing.LiveSet
	directory Directory
	fallbacks config.RoutingConfig
	publisher Publisher
	sender    string
	logger    *slog.Logger
}

// NewDispatcher returns a Dispatcher publishing as sender.
func NewDispatcher(live routing.LiveSet, directory Directory, fallbacks config.RoutingConfig, publisher Publisher, sender string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		live:      live,
		directory: directory,
		fallbacks: fallbacks,
		publisher: publisher,
		sender:    sender,
		logger:    logger,
	}
}

// ConsolidationChange builds the routing rewrite for an approved
// consolidation: every merged department routes to the proposed name,
// and every capability the merged departments served remaps to it.
// A merged department that is not in the live set gets no routing
// entry; the recommendation referenced something that does not exist,
// which is an upstream data error worth a warning but not a failure.
func (d *Dispatcher) ConsolidationChange(rec schema.ConsolidationRecommendation) schema.DepartmentChangeNotification {
	routingChanges := make(map[string]string, len(rec.DepartmentsToMerge))
	capabilityRemaps := make(map[string]string)
	rollback := make(map[string]string, len(rec.DepartmentsToMerge))

	for _, merged := range rec.DepartmentsToMerge {
		if merged == rec.ProposedName {
			continue
		}
		if !d.live.Contains(merged) {
			d.logger.Warn("skipping routing entry for unknown department",
				"department", merged,
				"proposed", rec.ProposedName,
			)
			continue
		}
		routingChanges[merged] = rec.ProposedName
		rollback[merged] = merged
		for _, capability := range d.directory.CapabilitiesOf(merged) {
			capabilityRemaps[capability] = rec.ProposedName
		}
	}

	return schema.DepartmentChangeNotification{
		ChangeType:           schema.ChangeTypeConsolidated,
		AffectedDepartments:  rec.DepartmentsToMerge,
		NewDepartment:        rec.ProposedName,
		RoutingChanges:       routingChanges,
		CapabilityRemaps:     capabilityRemaps,
		EffectiveImmediately: true,
		RollbackAvailable:    true,
		Rollback:             rollback,
	}
}

// TerminationChange builds the routing rewrite for an approved
// termination: traffic for the retired department routes to the
// fallback of its category. A fallback must itself be live; a dead
// category fallback falls through to the default, and when neither is
// live the change carries no fallback at all and consumers escalate.
// An unknown department still gets the fallback record but no routing
// entry.
func (d *Dispatcher) TerminationChange(rec schema.TerminationRecommendation) schema.DepartmentChangeNotification {
	fallback := d.liveFallback(rec.DepartmentName)
	change := schema.DepartmentChangeNotification{
		ChangeType:           schema.ChangeTypeTerminated,
		AffectedDepartments:  []string{rec.DepartmentName},
		FallbackDepartment:   fallback,
		EffectiveImmediately: true,
		RollbackAvailable:    true,
		Rollback:             map[string]string{rec.DepartmentName: rec.DepartmentName},
	}
	if fallback == "" {
		return change
	}
	if d.live.Contains(rec.DepartmentName) {
		change.RoutingChanges = map[string]string{rec.DepartmentName: fallback}
	} else {
		d.logger.Warn("skipping routing entry for unknown department",
			"department", rec.DepartmentName,
			"fallback", fallback,
		)
	}
	return change
}

// liveFallback picks the fallback for a terminated department,
// refusing any candidate that is not in the live set. Returns "" when
// no live fallback exists.
func (d *Dispatcher) liveFallback(name string) string {
	fallback := d.fallbacks.FallbackFor(d.directory.CategoryOf(name))
	if d.live.Contains(fallback) {
		return fallback
	}
	d.logger.Warn("category fallback is not live",
		"department", name,
		"fallback", fallback,
	)
	if other := d.fallbacks.DefaultFallback; other != fallback && d.live.Contains(other) {
		return other
	}
	return ""
}

// Broadcast publishes a decision on the council channel and, when the
// decision carries a structural change, the change notification on
// the changes channel. The decision goes out first so consumers see
// the ruling before its effect.
func (d *Dispatcher) Broadcast(ctx context.Context, decision schema.CouncilDecision, change *schema.DepartmentChangeNotification) error {
	envelope, err := schema.Envelope(d.sender, decision)
	if err != nil {
		return fmt.Errorf("wrapping decision: %w", err)
	}
	if err := d.publisher.Publish(ctx, schema.ChannelCouncil, envelope); err != nil {
		return fmt.Errorf("publishing decision %s: %w", decision.RecommendationID, err)
	}

	if change == nil {
		return nil
	}
	envelope, err = schema.Envelope(d.sender, *change)
	if err != nil {
		return fmt.Errorf("wrapping change: %w", err)
	}
	if err := d.publisher.Publish(ctx, schema.ChannelChanges, envelope); err != nil {
		return fmt.Errorf("publishing %s change: %w", change.ChangeType, err)
	}
	d.logger.Info("change broadcast",
		"change_type", change.ChangeType,
		"affected", change.AffectedDepartments,
		"new_department", change.NewDepartment,
	)
	return nil
}
