// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock provides the time operations used by the supervision and
// dispatch loops.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once
	// duration d has elapsed. If d <= 0, the channel receives
	// immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering ticks on its C channel
	// every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker

	// Sleep pauses the calling goroutine for at least duration d.
	Sleep(d time.Duration)
}

// Ticker delivers periodic ticks on C. Call Stop to release it.
//
// C has capacity 1, matching time.Ticker: a slow consumer drops ticks
// instead of queueing them.
type Ticker struct {
	// C delivers ticks.
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. No ticks are delivered after Stop
// returns. Stop does not close C.
func (t *Ticker) Stop() { t.stopFunc() }
