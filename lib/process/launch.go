// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
)

// Handle identifies a spawned department process. The PID is opaque to
// callers: only the Launcher that issued the handle can interpret it.
type Handle struct {
	// Name is the logical department name the process serves.
	Name string

	// PID is the operating-system process ID, or zero for a handle
	// that never spawned.
	PID int
}

// Valid reports whether the handle refers to a spawned process.
func (h Handle) Valid() bool { return h.PID > 0 }

// Launcher spawns and terminates department processes and reports
// their liveness. Implementations must be safe for concurrent use.
type Launcher interface {
	// Spawn starts a department process from its launch command and
	// returns a handle to it. The process runs detached from the
	// caller; its exit is observed through Alive, not through an
	// error return.
	Spawn(name string, argv []string) (Handle, error)

	// Alive reports whether the process behind the handle is still
	// running. Must not block.
	Alive(handle Handle) bool

	// Terminate asks the process behind the handle to exit.
	// Idempotent: terminating a dead or invalid handle is not an
	// error.
	Terminate(handle Handle) error
}

// ExecLauncher is the production Launcher backed by os/exec. Spawned
// processes are reaped by a per-process goroutine so they never
// linger as zombies.
type ExecLauncher struct {
	Logger *slog.Logger
}

// Spawn starts argv[0] with the remaining arguments. The command's
// stdout and stderr are discarded: departments report through the bus,
// not through pipes held open by the orchestrator.
func (l *ExecLauncher) Spawn(name string, argv []string) (Handle, error) {
	if len(argv) == 0 {
		return Handle{}, fmt.Errorf("spawning %s: empty launch command", name)
	}

	command := exec.Command(argv[0], argv[1:]...)
	if err := command.Start(); err != nil {
		return Handle{}, fmt.Errorf("spawning %s: %w", name, err)
	}

	handle := Handle{Name: name, PID: command.Process.Pid}

	// Reap the process when it exits so the kernel can release it.
	// Exit status is informational only: the supervisor learns about
	// the death on its next liveness probe.
	go func() {
		err := command.Wait()
		if l.Logger != nil {
			l.Logger.Info("department process exited",
				"department", name,
				"pid", handle.PID,
				"error", err,
			)
		}
	}()

	return handle, nil
}

// Alive sends signal 0 to the process, which checks existence without
// delivering a real signal. ESRCH means the process is gone.
func (l *ExecLauncher) Alive(handle Handle) bool {
	if !handle.Valid() {
		return false
	}
	return syscall.Kill(handle.PID, syscall.Signal(0)) == nil
}

// Terminate sends SIGTERM. Departments are expected to exit promptly
// on SIGTERM; a process that ignores it is caught by the next
// liveness probe cycle, not force-killed here.
func (l *ExecLauncher) Terminate(handle Handle) error {
	if !handle.Valid() {
		return nil
	}
	err := syscall.Kill(handle.PID, syscall.SIGTERM)
	if err == syscall.ESRCH {
		return nil
	}
	if err != nil {
		return fmt.Errorf("terminating %s (pid %d): %w", handle.Name, handle.PID, err)
	}
	return nil
}
