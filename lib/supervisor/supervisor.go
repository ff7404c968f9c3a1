// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MadBomber/smart-message-demos/lib/clock"
	"github.com/MadBomber/smart-message-demos/lib/process"
)

// CheckSender issues a health-check request to a department. The
// reply, if any, arrives asynchronously through RecordHealthReply.
type CheckSender interface {
	SendCheck(ctx context.Context, name string) error
}

// Options configures a Supervisor.
type Options struct {
	Clock    clock.Clock
	Launcher process.Launcher
	Checks   CheckSender

	// FailureThreshold is the number of consecutive process or
	// health failures that triggers a restart. Zero means 3.
	FailureThreshold int

	// MaxRestarts is the restart budget. A department whose
	// threshold trips after MaxRestarts restart attempts is
	// permanently failed. Zero means 3.
	MaxRestarts int

	// SilenceWindow is how long a health check may go unanswered
	// before it counts as a failed check. Zero means 60s.
	SilenceWindow time.Duration

	Logger *slog.Logger
}

// Supervisor owns the DepartmentRecords for every tracked department.
type Supervisor struct {
	mu sync.Mutex

	clock    clock.Clock
	launcher process.Launcher
	checks   CheckSender

	failureThreshold int
	maxRestarts      int
	silenceWindow    time.Duration

	records  map[string]*DepartmentRecord
	commands map[string][]string

	// draining stops new health checks and restarts during shutdown.
	draining bool

	logger *slog.Logger
}

// New returns a Supervisor with defaults applied to zero options.
func New(options Options) *Supervisor {
	if options.FailureThreshold <= 0 {
		options.FailureThreshold = 3
	}
	if options.MaxRestarts <= 0 {
		options.MaxRestarts = 3
	}
	if options.SilenceWindow <= 0 {
		options.SilenceWindow = 60 * time.Second
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Supervisor{
		clock:            options.Clock,
		launcher:         options.Launcher,
		checks:           options.Checks,
		failureThreshold: options.FailureThreshold,
		maxRestarts:      options.MaxRestarts,
		silenceWindow:    options.SilenceWindow,
		records:          make(map[string]*DepartmentRecord),
		commands:         make(map[string][]string),
		logger:           options.Logger,
	}
}

// SetChecks installs the check sender. The supervisor and the health
// protocol reference each other, so one side is wired after
// construction. Must be called before the first Tick.
func (s *Supervisor) SetChecks(sender CheckSender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = sender
}

// Register starts tracking a department and spawns its process. A
// name already tracked is left alone. Spawn errors are not fatal: the
// record is created anyway and the dead handle is picked up by the
// next Tick, which counts it toward the restart budget.
func (s *Supervisor) Register(name string, command []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[name]; exists {
		s.commands[name] = command
		return
	}

	now := s.clock.Now()
	record := &DepartmentRecord{
		Name:      name,
		Status:    StatusStarting,
		CreatedAt: now,
	}
	s.records[name] = record
	s.commands[name] = command

	handle, err := s.launcher.Spawn(name, command)
	if err != nil {
		record.LastFailure = now
		s.logger.Error("spawning department failed",
			"department", name,
			"error", err,
		)
		return
	}
	record.Handle = handle

	s.logger.Info("department registered",
		"department", name,
		"pid", handle.PID,
	)
}

// Tracked reports whether a department has a record, in any status.
func (s *Supervisor) Tracked(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.records[name]
	return exists
}

// Contains reports whether a department is in the live set: tracked
// and not permanently failed. Satisfies the routing table's live-set
// interface.
func (s *Supervisor) Contains(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, exists := s.records[name]
	return exists && record.Status != StatusPermanentlyFailed
}

// Record returns a copy of a department's record.
func (s *Supervisor) Record(name string) (DepartmentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, exists := s.records[name]
	if !exists {
		return DepartmentRecord{}, false
	}
	return *record, true
}

// Tick runs one supervision cycle over every department that is not
// permanently failed. Checks selected during the cycle are published
// after the lock is released so the reply path can never deadlock
// against the cycle.
func (s *Supervisor) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	now := s.clock.Now()

	var pendingChecks []string
	for _, record := range s.records {
		if record.Status == StatusPermanentlyFailed {
			continue
		}
		if s.superviseLocked(now, record) {
			// Mark the check outstanding before publishing it so a
			// synchronous reply finds the record consistent.
			record.AwaitingResponse = true
			record.LastHealthRequest = now
			pendingChecks = append(pendingChecks, record.Name)
		}
	}
	s.mu.Unlock()

	for _, name := range pendingChecks {
		if err := s.checks.SendCheck(ctx, name); err != nil {
			s.logger.Warn("sending health check failed",
				"department", name,
				"error", err,
			)
		}
	}
}

// superviseLocked probes one department and applies the failure
// accounting. Returns true when a new health check should be sent
// after the lock is released. Caller must hold s.mu.
func (s *Supervisor) superviseLocked(now time.Time, record *DepartmentRecord) (sendCheck bool) {
	alive := s.launcher.Alive(record.Handle)
	record.LastProcessCheck = now

	if alive {
		record.ProcessFailures = 0
	} else {
		record.ProcessFailures++
		record.LastFailure = now
		s.logger.Warn("department process not running",
			"department", record.Name,
			"pid", record.Handle.PID,
			"consecutive_failures", record.ProcessFailures,
		)
	}

	// A check outstanding past the silence window counts as a failed
	// check. Unanswered checks and explicit unhealthy replies are
	// accounted identically but logged differently.
	if record.AwaitingResponse && now.Sub(record.LastHealthRequest) > s.silenceWindow {
		record.AwaitingResponse = false
		record.HealthFailures++
		record.LastFailure = now
		if record.Status == StatusRunning {
			record.Status = StatusUnresponsive
		}
		s.logger.Warn("health check unanswered",
			"department", record.Name,
			"silence", now.Sub(record.LastHealthRequest),
			"consecutive_failures", record.HealthFailures,
		)
	}

	if record.ProcessFailures >= s.failureThreshold || record.HealthFailures >= s.failureThreshold {
		s.restartLocked(now, record)
		return false
	}

	// Health checks are not retried individually: the next one goes
	// out only once the previous is answered or times out, which
	// gives natural backoff.
	return alive && !record.AwaitingResponse
}

// restartLocked attempts a bounded restart, or demotes the department
// to permanently failed once the budget is spent. Caller must hold
// s.mu.
func (s *Supervisor) restartLocked(now time.Time, record *DepartmentRecord) {
	if record.Restarts >= s.maxRestarts {
		record.Status = StatusPermanentlyFailed
		s.terminateLocked(record)
		s.logger.Error("department permanently failed",
			"department", record.Name,
			"restarts", record.Restarts,
		)
		return
	}

	record.Status = StatusRestarting
	s.terminateLocked(record)

	record.Restarts++
	record.LastRestart = now
	record.ProcessFailures = 0
	record.HealthFailures = 0
	record.AwaitingResponse = false

	handle, err := s.launcher.Spawn(record.Name, s.commands[record.Name])
	if err != nil {
		// A failed spawn is a failed restart attempt: counted above,
		// never fatal to the supervisor. The dead handle trips the
		// next cycle's liveness probe.
		record.Handle = process.Handle{Name: record.Name}
		record.LastFailure = now
		s.logger.Error("restart spawn failed",
			"department", record.Name,
			"attempt", record.Restarts,
			"error", err,
		)
		return
	}

	record.Handle = handle
	s.logger.Info("department restarted",
		"department", record.Name,
		"pid", handle.PID,
		"attempt", record.Restarts,
	)
}

// terminateLocked kills a stale handle, best effort. Caller must hold
// s.mu.
func (s *Supervisor) terminateLocked(record *DepartmentRecord) {
	if !record.Handle.Valid() {
		return
	}
	if err := s.launcher.Terminate(record.Handle); err != nil {
		s.logger.Warn("terminating stale department process",
			"department", record.Name,
			"pid", record.Handle.PID,
			"error", err,
		)
	}
}

// RecordHealthReply applies an asynchronous health reply. Replies for
// unknown or permanently failed departments are discarded silently.
// An explicit unhealthy reply counts toward the failure threshold; a
// healthy reply from a live process promotes the department to
// Running and clears both failure counters.
func (s *Supervisor) RecordHealthReply(name string, healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[name]
	if !exists || record.Status == StatusPermanentlyFailed {
		return
	}

	record.AwaitingResponse = false

	if !healthy {
		record.HealthFailures++
		record.LastFailure = s.clock.Now()
		if record.Status == StatusRunning {
			record.Status = StatusUnresponsive
		}
		s.logger.Warn("department reported unhealthy",
			"department", name,
			"consecutive_failures", record.HealthFailures,
		)
		return
	}

	record.HealthFailures = 0
	if s.launcher.Alive(record.Handle) {
		switch record.Status {
		case StatusStarting, StatusRestarting, StatusUnresponsive:
			record.Status = StatusRunning
			record.ProcessFailures = 0
			s.logger.Info("department running",
				"department", name,
				"pid", record.Handle.PID,
			)
		}
	}
}

// Remove forgets a department entirely. Called when a routing change
// confirms its termination. The process, if any, is killed first.
func (s *Supervisor) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[name]
	if !exists {
		return
	}
	s.terminateLocked(record)
	delete(s.records, name)
	delete(s.commands, name)

	s.logger.Info("department removed", "department", name)
}

// Live returns the names of tracked departments that are not
// permanently failed.
func (s *Supervisor) Live() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.records))
	for name, record := range s.records {
		if record.Status != StatusPermanentlyFailed {
			names = append(names, name)
		}
	}
	return names
}

// Drain stops the supervisor from issuing new health checks or
// restarts. In-flight records keep their state; Shutdown performs the
// final cleanup.
func (s *Supervisor) Drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draining = true
}

// Shutdown terminates every tracked process synchronously. Called
// after Drain during process exit.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		s.terminateLocked(record)
	}
}
