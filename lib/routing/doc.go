// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Package routing maintains the mapping from logical department names
// to the departments that should actually receive their traffic, as
// consolidations, terminations, renames, and creations accumulate.
//
// Every routing-aware consumer holds its own Table mirror and applies
// the same DepartmentChangeNotification broadcasts. Application is a
// set-union, so the at-least-once transport can deliver a change any
// number of times without corrupting the mirror.
package routing
