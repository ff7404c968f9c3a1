// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Package bus defines the publish/subscribe boundary between the
// orchestrator and the city's departments. The transport guarantees
// at-least-once delivery per channel; it does not guarantee ordering
// across channels, and subscribers must tolerate duplicates.
//
// Local is an in-process implementation used by the single-process
// demo mode and by tests. Production deployments substitute a real
// broker client behind the same interface.
package bus
