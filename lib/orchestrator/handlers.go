// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"

	"github.com/MadBomber/smart-message-demos/lib/bus"
	"github.com/MadBomber/smart-message-demos/lib/schema"
	"github.com/MadBomber/smart-message-demos/lib/template"
)

// handlerTable builds the closed dispatch table: every message type
// the orchestrator answers. Called once from New; the map is never
// mutated afterwards.
func (o *Orchestrator) handlerTable() map[string]bus.Handler {
	return map[string]bus.Handler{
		schema.MessageTypeHealthStatus:  o.health.HandleReply,
		schema.MessageTypeConsolidation: o.handleConsolidation,
		schema.MessageTypeTermination:   o.handleTermination,
		schema.MessageTypeServiceNeeded: o.handleServiceNeeded,
	}
}

// dispatchEnvelope routes one inbound envelope through the handler
// table. Unhandled types are dropped with a warning; the loop never
// crashes on unexpected input.
func (o *Orchestrator) dispatchEnvelope(ctx context.Context, envelope bus.Envelope) {
	handler, ok := o.handlers[envelope.Type]
	if !ok {
		o.logger.Warn("dropping unhandled message",
			"type", envelope.Type,
			"sender", envelope.Sender,
		)
		return
	}
	handler(ctx, envelope)
}

// handleConsolidation decides a consolidation recommendation and, when
// approved, broadcasts the routing rewrite and deploys the
// consolidated department if a template for it exists.
func (o *Orchestrator) handleConsolidation(ctx context.Context, envelope bus.Envelope) {
	rec, err := schema.Decode[schema.ConsolidationRecommendation](envelope)
	if err != nil {
		o.logger.Warn("dropping malformed consolidation", "error", err)
		return
	}

	decision, fresh := o.evaluator.EvaluateConsolidation(rec)
	if !fresh {
		return
	}

	var change *schema.DepartmentChangeNotification
	if decision.Decision == schema.DecisionApproved {
		built := o.dispatcher.ConsolidationChange(rec)
		change = &built
	}
	if err := o.dispatcher.Broadcast(ctx, decision, change); err != nil {
		o.logger.Error("broadcasting consolidation failed", "error", err)
		return
	}
	if change == nil {
		return
	}

	o.table.Apply(*change)
	if tpl := o.index.Template(rec.ProposedName); tpl != nil {
		if !o.supervisor.Tracked(tpl.Name) {
			o.supervisor.Register(tpl.Name, tpl.Command)
		}
	} else {
		o.logger.Info("no template for consolidated department",
			"proposed", rec.ProposedName,
		)
	}
}

// handleTermination decides a termination recommendation and, when
// approved, broadcasts the fallback rewrite and stops supervising the
// terminated department.
func (o *Orchestrator) handleTermination(ctx context.Context, envelope bus.Envelope) {
	rec, err := schema.Decode[schema.TerminationRecommendation](envelope)
	if err != nil {
		o.logger.Warn("dropping malformed termination", "error", err)
		return
	}

	decision, fresh := o.evaluator.EvaluateTermination(rec)
	if !fresh {
		return
	}

	var change *schema.DepartmentChangeNotification
	if decision.Decision == schema.DecisionApproved {
		built := o.dispatcher.TerminationChange(rec)
		change = &built
	}
	if err := o.dispatcher.Broadcast(ctx, decision, change); err != nil {
		o.logger.Error("broadcasting termination failed", "error", err)
		return
	}
	if change == nil {
		return
	}

	o.table.Apply(*change)
	o.supervisor.Remove(rec.DepartmentName)
}

// handleServiceNeeded creates the department a dispatch consumer
// escalated for. The template is found by the requested name first,
// then by category; a category no template serves is logged and
// dropped, leaving the requester to time out and report the work
// undeliverable.
func (o *Orchestrator) handleServiceNeeded(ctx context.Context, envelope bus.Envelope) {
	needed, err := schema.Decode[schema.ServiceNeededRequest](envelope)
	if err != nil {
		o.logger.Warn("dropping malformed service-needed request", "error", err)
		return
	}

	tpl := o.findTemplate(needed)
	if tpl == nil {
		o.logger.Warn("no template can serve requested department",
			"department", needed.DepartmentName,
			"category", needed.Category,
			"requester", needed.RequestingService,
		)
		return
	}

	if !o.supervisor.Tracked(tpl.Name) {
		o.supervisor.Register(tpl.Name, tpl.Command)
	}

	change := schema.DepartmentChangeNotification{
		ChangeType:           schema.ChangeTypeCreated,
		AffectedDepartments:  []string{needed.DepartmentName},
		NewDepartment:        tpl.Name,
		EffectiveImmediately: true,
	}
	if tpl.Name != needed.DepartmentName {
		// The requester asked under a logical name the template does
		// not carry; route that name to the deployed department.
		change.RoutingChanges = map[string]string{needed.DepartmentName: tpl.Name}
	}
	o.table.Apply(change)
	o.publish(ctx, schema.ChannelChanges, change)
	o.publish(ctx, schema.ChannelChanges, schema.DepartmentAnnouncement{
		DepartmentName: tpl.Name,
		Category:       tpl.Category,
		Capabilities:   tpl.Capabilities,
	})
}

// findTemplate locates a deployable template for a service-needed
// request, trying the exact department name before falling back to
// any template serving the category.
func (o *Orchestrator) findTemplate(needed schema.ServiceNeededRequest) *template.Template {
	if tpl := o.index.Template(needed.DepartmentName); tpl != nil {
		return tpl
	}
	for _, name := range o.index.Serving(needed.Category) {
		if tpl := o.index.Template(name); tpl != nil {
			return tpl
		}
	}
	return nil
}
