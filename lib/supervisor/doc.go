// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervisor owns the lifecycle state of every running
// department process: spawn, liveness probing, health-check
// correlation, bounded restart, and permanent-failure demotion.
//
// Each department's record is mutated only through the Supervisor's
// operations, serialized by a single mutex. The supervision cycle
// (Tick) and the asynchronous health-reply path never race on the
// same record, and neither blocks on the bus while holding the lock:
// health checks are recorded under the lock and published after it is
// released, so a reply arriving synchronously cannot deadlock the
// supervisor.
package supervisor
