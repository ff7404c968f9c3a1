// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Command cityd is the city orchestrator: it scans the department
// template registry, supervises one process per department with
// bounded restarts, decides council recommendations, and broadcasts
// the resulting routing changes to every routing-aware consumer.
//
// Inbound messages are dispatched through a closed handler registry
// built at startup; a message type without a handler is dropped with
// a warning, never resolved dynamically.
package main
