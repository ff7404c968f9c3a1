// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import "context"

// Envelope is a single message on the bus: a type tag identifying the
// payload schema, the encoded payload, and the logical name of the
// sender.
type Envelope struct {
	// Type is the message-type tag (see lib/schema). Subscribers use
	// it to pick a decoder; unknown types are dropped with a logged
	// warning, never an error.
	Type string `json:"type"`

	// Payload is the JSON-encoded message body.
	Payload []byte `json:"payload"`

	// Sender is the logical name of the publishing service.
	Sender string `json:"sender"`
}

// Handler consumes one envelope. Handlers must not block the delivery
// path: anything slow runs in its own goroutine.
type Handler func(ctx context.Context, envelope Envelope)

// Bus is the transport interface. Channels are logical names
// ("city.health", "city.council", per-department inboxes); they exist
// implicitly on first use.
type Bus interface {
	// Publish sends one envelope to every current subscriber of the
	// channel. Delivery is at-least-once.
	Publish(ctx context.Context, channel string, envelope Envelope) error

	// Subscribe registers a handler for a channel and returns a
	// cancel function that removes the registration. Envelopes
	// published before Subscribe returns are not delivered.
	Subscribe(channel string, handler Handler) (cancel func())
}
