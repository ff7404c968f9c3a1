// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"time"

	"github.com/MadBomber/smart-message-demos/lib/process"
)

// Status is a department's lifecycle state.
type Status string

const (
	// StatusStarting means the process was spawned but has not yet
	// passed its first liveness and health probe.
	StatusStarting Status = "starting"

	// StatusRunning means the department is alive and answering
	// health checks.
	StatusRunning Status = "running"

	// StatusUnresponsive means the process is alive but health
	// checks are going unanswered or coming back unhealthy.
	StatusUnresponsive Status = "unresponsive"

	// StatusRestarting means the supervisor has restarted the
	// process and is waiting for it to prove itself healthy again.
	StatusRestarting Status = "restarting"

	// StatusPermanentlyFailed means the restart budget is exhausted.
	// The department is excluded from further supervision; only a
	// terminated-type routing change removes its record.
	StatusPermanentlyFailed Status = "permanently_failed"
)

// DepartmentRecord tracks one supervised department. Owned exclusively
// by the Supervisor; callers receive copies.
type DepartmentRecord struct {
	// Name is the unique logical department name.
	Name string

	// Handle is the current process handle. Invalid while a spawn is
	// failing.
	Handle process.Handle

	// Status is the lifecycle state.
	Status Status

	// ProcessFailures counts consecutive failed liveness probes.
	ProcessFailures int

	// HealthFailures counts consecutive failed health checks, both
	// unanswered ones (past the silence window) and explicit
	// unhealthy replies.
	HealthFailures int

	// Restarts counts restart attempts, successful or not.
	Restarts int

	// AwaitingResponse is true while a health check is outstanding.
	AwaitingResponse bool

	CreatedAt         time.Time
	LastProcessCheck  time.Time
	LastHealthRequest time.Time
	LastFailure       time.Time
	LastRestart       time.Time
}
