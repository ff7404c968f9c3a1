// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/MadBomber/smart-message-demos/lib/bus"
	"github.com/MadBomber/smart-message-demos/lib/schema"
)

// fakePublisher records published envelopes per channel.
type fakePublisher struct {
	mu        sync.Mutex
	published map[string][]bus.Envelope
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: make(map[string][]bus.Envelope)}
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, envelope bus.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published[channel] = append(p.published[channel], envelope)
	return nil
}

// fakeSink records forwarded health replies.
type fakeSink struct {
	mu      sync.Mutex
	replies []struct {
		name    string
		healthy bool
	}
}

func (s *fakeSink) RecordHealthReply(name string, healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, struct {
		name    string
		healthy bool
	}{name, healthy})
}

func replyEnvelope(t *testing.T, reply schema.HealthStatusReply) bus.Envelope {
	t.Helper()
	envelope, err := schema.Envelope(reply.ServiceName, reply)
	if err != nil {
		t.Fatalf("building reply envelope: %v", err)
	}
	return envelope
}

func TestSendCheckAddressesDepartmentChannel(t *testing.T) {
	publisher := newFakePublisher()
	protocol := NewHealthProtocol(publisher, &fakeSink{}, "cityd", quietLogger())

	if err := protocol.SendCheck(context.Background(), "water"); err != nil {
		t.Fatalf("SendCheck: %v", err)
	}

	sent := publisher.published[schema.DepartmentChannel("water")]
	if len(sent) != 1 {
		t.Fatalf("published = %d envelopes, want 1", len(sent))
	}
	if sent[0].Type != schema.MessageTypeHealthCheck {
		t.Errorf("Type = %q, want %q", sent[0].Type, schema.MessageTypeHealthCheck)
	}

	var request schema.HealthCheckRequest
	if err := json.Unmarshal(sent[0].Payload, &request); err != nil {
		t.Fatalf("decoding request: %v", err)
	}
	if request.To != "water" || request.From != "cityd" {
		t.Errorf("request addressed %s→%s, want cityd→water", request.From, request.To)
	}
	if request.CheckID == "" {
		t.Error("CheckID is empty")
	}
	if protocol.Outstanding() != 1 {
		t.Errorf("Outstanding = %d, want 1", protocol.Outstanding())
	}
}

func TestHandleReplyCorrelatesByCheckID(t *testing.T) {
	publisher := newFakePublisher()
	sink := &fakeSink{}
	protocol := NewHealthProtocol(publisher, sink, "cityd", quietLogger())

	protocol.SendCheck(context.Background(), "water")
	sent := publisher.published[schema.DepartmentChannel("water")][0]
	var request schema.HealthCheckRequest
	json.Unmarshal(sent.Payload, &request)

	protocol.HandleReply(context.Background(), replyEnvelope(t, schema.HealthStatusReply{
		CheckID:     request.CheckID,
		ServiceName: "water",
		Status:      schema.HealthStatusHealthy,
	}))

	if len(sink.replies) != 1 {
		t.Fatalf("forwarded replies = %d, want 1", len(sink.replies))
	}
	if sink.replies[0].name != "water" || !sink.replies[0].healthy {
		t.Errorf("forwarded (%s, %v), want (water, true)", sink.replies[0].name, sink.replies[0].healthy)
	}
	if protocol.Outstanding() != 0 {
		t.Errorf("Outstanding = %d, want 0 after reply", protocol.Outstanding())
	}
}

func TestHandleReplyNonHealthyStatusForwardsFalse(t *testing.T) {
	sink := &fakeSink{}
	protocol := NewHealthProtocol(newFakePublisher(), sink, "cityd", quietLogger())

	protocol.HandleReply(context.Background(), replyEnvelope(t, schema.HealthStatusReply{
		CheckID:     "unknown-check",
		ServiceName: "water",
		Status:      schema.HealthStatusCritical,
	}))

	if len(sink.replies) != 1 {
		t.Fatalf("forwarded replies = %d, want 1", len(sink.replies))
	}
	if sink.replies[0].healthy {
		t.Error("critical status forwarded as healthy")
	}
}

func TestHandleReplyDuplicateFallsBackToServiceName(t *testing.T) {
	publisher := newFakePublisher()
	sink := &fakeSink{}
	protocol := NewHealthProtocol(publisher, sink, "cityd", quietLogger())

	protocol.SendCheck(context.Background(), "water")
	sent := publisher.published[schema.DepartmentChannel("water")][0]
	var request schema.HealthCheckRequest
	json.Unmarshal(sent.Payload, &request)

	reply := replyEnvelope(t, schema.HealthStatusReply{
		CheckID:     request.CheckID,
		ServiceName: "water",
		Status:      schema.HealthStatusHealthy,
	})

	// At-least-once transport: the same reply delivered twice is
	// forwarded twice; the supervisor tolerates the duplicate.
	protocol.HandleReply(context.Background(), reply)
	protocol.HandleReply(context.Background(), reply)

	if len(sink.replies) != 2 {
		t.Fatalf("forwarded replies = %d, want 2", len(sink.replies))
	}
	if sink.replies[1].name != "water" {
		t.Errorf("duplicate forwarded as %q, want water", sink.replies[1].name)
	}
}

func TestHandleReplyMalformedDropped(t *testing.T) {
	sink := &fakeSink{}
	protocol := NewHealthProtocol(newFakePublisher(), sink, "cityd", quietLogger())

	protocol.HandleReply(context.Background(), bus.Envelope{
		Type:    schema.MessageTypeHealthStatus,
		Payload: []byte("{broken"),
		Sender:  "water",
	})

	if len(sink.replies) != 0 {
		t.Errorf("forwarded replies = %d, want 0 for malformed payload", len(sink.replies))
	}
}
