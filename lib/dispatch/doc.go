// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch is the consumer side of routing: it classifies
// inbound service requests into department categories, resolves each
// category to a live department through the routing table, and
// escalates to the orchestrator when no department can serve a
// category.
//
// Classification is policy, not structure, so it lives behind the
// Classifier interface; RuleClassifier is the default keyword table.
// The Router never drops work silently: a request that cannot reach
// any department within the creation wait is reported undeliverable
// to the caller.
//
// Center ties the pieces to a message bus: it mirrors department
// announcements and change notifications into the local routing
// table and feeds inbound service requests through the Router.
package dispatch
