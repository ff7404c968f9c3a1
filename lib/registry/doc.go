// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry enumerates the department identities that are
// currently deployable. The scanner reports existence only; health
// and lifecycle are the supervisor's business.
package registry
