// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"
	"testing"
)

func TestLocalDeliversToSubscribers(t *testing.T) {
	local := NewLocal()
	ctx := context.Background()

	var received []string
	local.Subscribe("city.health", func(ctx context.Context, envelope Envelope) {
		received = append(received, envelope.Type)
	})

	local.Publish(ctx, "city.health", Envelope{Type: "check", Sender: "cityd"})
	local.Publish(ctx, "city.health", Envelope{Type: "reply", Sender: "water"})

	if len(received) != 2 || received[0] != "check" || received[1] != "reply" {
		t.Errorf("received = %v, want [check reply]", received)
	}
}

func TestLocalChannelIsolation(t *testing.T) {
	local := NewLocal()
	ctx := context.Background()

	delivered := 0
	local.Subscribe("city.council", func(ctx context.Context, envelope Envelope) {
		delivered++
	})

	local.Publish(ctx, "city.health", Envelope{Type: "check"})

	if delivered != 0 {
		t.Errorf("delivered = %d, want 0 (wrong channel)", delivered)
	}
}

func TestLocalCancelRemovesSubscription(t *testing.T) {
	local := NewLocal()
	ctx := context.Background()

	delivered := 0
	cancel := local.Subscribe("city.health", func(ctx context.Context, envelope Envelope) {
		delivered++
	})
	cancel()

	local.Publish(ctx, "city.health", Envelope{Type: "check"})

	if delivered != 0 {
		t.Errorf("delivered = %d, want 0 after cancel", delivered)
	}
}

func TestLocalHandlerMayPublish(t *testing.T) {
	local := NewLocal()
	ctx := context.Background()

	var replies []string
	local.Subscribe("department/water", func(ctx context.Context, envelope Envelope) {
		local.Publish(ctx, "city.health", Envelope{Type: "reply", Sender: "water"})
	})
	local.Subscribe("city.health", func(ctx context.Context, envelope Envelope) {
		replies = append(replies, envelope.Sender)
	})

	local.Publish(ctx, "department/water", Envelope{Type: "check"})

	if len(replies) != 1 || replies[0] != "water" {
		t.Errorf("replies = %v, want [water]", replies)
	}
}
