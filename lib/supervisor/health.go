// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/MadBomber/smart-message-demos/lib/bus"
	"github.com/MadBomber/smart-message-demos/lib/schema"
)

// Publisher is the bus surface the health protocol needs. Satisfied
// by bus.Bus.
type Publisher interface {
	Publish(ctx context.Context, channel string, envelope bus.Envelope) error
}

// ReplySink receives correlated health replies. Satisfied by
// *Supervisor.
type ReplySink interface {
	RecordHealthReply(name string, healthy bool)
}

// HealthProtocol issues health-check requests on each department's
// inbox channel and correlates the asynchronous status replies back
// to the supervisor by check ID.
type HealthProtocol struct {
	publisher Publisher
	sink      ReplySink

	// origin is the logical name the orchestrator signs requests
	// with.
	origin string

	mu sync.Mutex
	// pending maps outstanding check IDs to the department each was
	// addressed to.
	pending map[string]string

	logger *slog.Logger
}

// NewHealthProtocol returns a HealthProtocol publishing as origin.
func NewHealthProtocol(publisher Publisher, sink ReplySink, origin string, logger *slog.Logger) *HealthProtocol {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthProtocol{
		publisher: publisher,
		sink:      sink,
		origin:    origin,
		pending:   make(map[string]string),
		logger:    logger,
	}
}

// SendCheck emits one health-check request addressed to the named
// department. Implements the supervisor's CheckSender.
func (p *HealthProtocol) SendCheck(ctx context.Context, name string) error {
	request := schema.HealthCheckRequest{
		CheckID: schema.NewCheckID(),
		From:    p.origin,
		To:      name,
	}

	envelope, err := schema.Envelope(p.origin, request)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.pending[request.CheckID] = name
	p.mu.Unlock()

	if err := p.publisher.Publish(ctx, schema.DepartmentChannel(name), envelope); err != nil {
		p.mu.Lock()
		delete(p.pending, request.CheckID)
		p.mu.Unlock()
		return err
	}
	return nil
}

// HandleReply consumes one HealthStatusReply envelope from the health
// channel. Malformed payloads are dropped with a warning. Replies
// whose check ID is unknown (duplicates under at-least-once delivery,
// or replies raced with a restart) fall back to the reply's own
// service name; the supervisor silently discards names it no longer
// tracks.
func (p *HealthProtocol) HandleReply(ctx context.Context, envelope bus.Envelope) {
	reply, err := schema.Decode[schema.HealthStatusReply](envelope)
	if err != nil {
		p.logger.Warn("dropping malformed health reply",
			"sender", envelope.Sender,
			"error", err,
		)
		return
	}

	p.mu.Lock()
	name, known := p.pending[reply.CheckID]
	if known {
		delete(p.pending, reply.CheckID)
	}
	p.mu.Unlock()

	if !known {
		name = reply.ServiceName
	} else if name != reply.ServiceName {
		p.logger.Warn("health reply service name mismatch",
			"check_id", reply.CheckID,
			"addressed", name,
			"replied", reply.ServiceName,
		)
	}
	if name == "" {
		return
	}

	p.sink.RecordHealthReply(name, reply.Healthy())
}

// Outstanding returns the number of checks awaiting replies.
func (p *HealthProtocol) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
