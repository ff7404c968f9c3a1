// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for the orchestration loops. Production
// code injects Real(); tests inject Fake() and advance time explicitly,
// so supervision-cycle tests run without real sleeps.
//
// Any code that would otherwise call time.Now, time.After,
// time.NewTicker, or time.Sleep takes a Clock instead.
package clock
