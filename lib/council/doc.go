// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Package council turns machine-generated consolidation and
// termination recommendations into binding routing changes.
//
// The Evaluator applies the policy thresholds from configuration and
// produces a three-way decision (approved, rejected, deferred) with a
// rationale derived solely from the outcome category, keeping the
// audit trail independent of free-form proposal text. The Dispatcher
// converts approved decisions into DepartmentChangeNotification
// broadcasts that every routing-aware consumer applies identically.
package council
