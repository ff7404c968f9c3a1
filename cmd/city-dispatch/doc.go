// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Command city-dispatch is the dispatch center: the consumer side of
// routing. It mirrors department announcements and change
// notifications into a local routing table, classifies inbound
// service requests, and forwards each one to the live department that
// should handle it, escalating to the orchestrator when no department
// can.
//
// The routing mirror is snapshotted after every applied change so a
// restarted dispatch center resumes with current routing instead of
// an empty table.
package main
