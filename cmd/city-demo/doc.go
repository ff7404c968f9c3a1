// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Command city-demo runs the whole city in one process over a single
// local bus: the orchestrator, the dispatch center, and an in-process
// department per template. Spawning a department subscribes a handler
// to its inbox instead of forking a binary, so health checks,
// announcements, routing changes, and service requests all flow
// end to end without any external transport.
//
// The demo feeds a canned list of service requests through the
// dispatch center and logs the live department roster on each
// supervision tick.
package main
