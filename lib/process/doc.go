// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers and the
// process-launch facility used by the department supervisor.
//
// The supervisor never touches os/exec directly: it spawns, probes,
// and terminates department processes through the Launcher interface,
// so supervision-cycle tests run against an in-memory fake instead of
// real processes.
package process
