// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MadBomber/smart-message-demos/lib/bus"
	"github.com/MadBomber/smart-message-demos/lib/clock"
	"github.com/MadBomber/smart-message-demos/lib/schema"
)

// department is an in-process stand-in for a department service: it
// answers health checks on the shared bus and counts the service
// requests that reach its inbox.
type department struct {
	name    string
	bus     bus.Bus
	clock   clock.Clock
	started time.Time
	logger  *slog.Logger

	mu       sync.Mutex
	requests int64
}

func (d *department) handle(ctx context.Context, envelope bus.Envelope) {
	switch envelope.Type {
	case schema.MessageTypeHealthCheck:
		d.answerHealth(ctx, envelope)
	case schema.MessageTypeServiceRequest:
		d.recordRequest(envelope)
	default:
		d.logger.Warn("dropping unhandled message",
			"department", d.name,
			"type", envelope.Type,
		)
	}
}

func (d *department) answerHealth(ctx context.Context, envelope bus.Envelope) {
	check, err := schema.Decode[schema.HealthCheckRequest](envelope)
	if err != nil {
		d.logger.Warn("dropping malformed health check", "department", d.name, "error", err)
		return
	}

	reply, err := schema.Envelope(d.name, schema.HealthStatusReply{
		CheckID:       check.CheckID,
		ServiceName:   d.name,
		Status:        schema.HealthStatusHealthy,
		UptimeSeconds: int64(d.clock.Now().Sub(d.started) / time.Second),
		MessageCount:  d.handled(),
	})
	if err != nil {
		d.logger.Error("wrapping health reply failed", "department", d.name, "error", err)
		return
	}
	if err := d.bus.Publish(ctx, schema.ChannelHealth, reply); err != nil {
		d.logger.Error("publishing health reply failed", "department", d.name, "error", err)
	}
}

func (d *department) recordRequest(envelope bus.Envelope) {
	req, err := schema.Decode[schema.ServiceRequest](envelope)
	if err != nil {
		d.logger.Warn("dropping malformed service request", "department", d.name, "error", err)
		return
	}

	d.mu.Lock()
	d.requests++
	d.mu.Unlock()

	d.logger.Info("request handled",
		"department", d.name,
		"request_id", req.RequestID,
		"description", req.Description,
	)
}

// handled returns how many service requests reached this department.
func (d *department) handled() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests
}
