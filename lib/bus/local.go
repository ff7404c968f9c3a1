// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"
	"sync"
)

// NewLocal returns an in-process Bus. Publish delivers synchronously
// to every subscriber in registration order, which keeps tests
// deterministic; handlers that need concurrency spawn their own
// goroutines.
func NewLocal() *Local {
	return &Local{
		subscribers: make(map[string][]*subscription),
	}
}

// Local is an in-process Bus implementation.
type Local struct {
	mu          sync.Mutex
	subscribers map[string][]*subscription
	nextID      int
}

type subscription struct {
	id      int
	handler Handler
}

// Publish delivers the envelope to every subscriber of the channel.
// The subscriber list is snapshotted under the lock and handlers run
// outside it, so a handler may publish or subscribe without
// deadlocking.
func (l *Local) Publish(ctx context.Context, channel string, envelope Envelope) error {
	l.mu.Lock()
	current := make([]*subscription, len(l.subscribers[channel]))
	copy(current, l.subscribers[channel])
	l.mu.Unlock()

	for _, sub := range current {
		sub.handler(ctx, envelope)
	}
	return nil
}

// Subscribe registers a handler for the channel.
func (l *Local) Subscribe(channel string, handler Handler) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	sub := &subscription{id: l.nextID, handler: handler}
	l.subscribers[channel] = append(l.subscribers[channel], sub)

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		kept := l.subscribers[channel][:0]
		for _, existing := range l.subscribers[channel] {
			if existing.id != sub.id {
				kept = append(kept, existing)
			}
		}
		l.subscribers[channel] = kept
	}
}
