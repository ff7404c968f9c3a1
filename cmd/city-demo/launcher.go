// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"sync"

	"github.com/MadBomber/smart-message-demos/lib/bus"
	"github.com/MadBomber/smart-message-demos/lib/clock"
	"github.com/MadBomber/smart-message-demos/lib/process"
	"github.com/MadBomber/smart-message-demos/lib/schema"
)

// localLauncher implements process.Launcher without forking:
// spawning a department subscribes its handler to the department
// inbox on the shared bus, and terminating it cancels the
// subscription. PIDs are synthetic and only distinguish spawns.
type localLauncher struct {
	bus    bus.Bus
	clock  clock.Clock
	logger *slog.Logger

	mu          sync.Mutex
	nextPID     int
	cancels     map[int]func()
	departments map[string]*department
}

func newLocalLauncher(messageBus bus.Bus, clk clock.Clock, logger *slog.Logger) *localLauncher {
	return &localLauncher{
		bus:         messageBus,
		clock:       clk,
		logger:      logger,
		cancels:     make(map[int]func()),
		departments: make(map[string]*department),
	}
}

func (l *localLauncher) Spawn(name string, _ []string) (process.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dept := l.departments[name]
	if dept == nil {
		dept = &department{
			name:    name,
			bus:     l.bus,
			clock:   l.clock,
			started: l.clock.Now(),
			logger:  l.logger,
		}
		l.departments[name] = dept
	}

	l.nextPID++
	l.cancels[l.nextPID] = l.bus.Subscribe(schema.DepartmentChannel(name), dept.handle)
	return process.Handle{Name: name, PID: l.nextPID}, nil
}

func (l *localLauncher) Alive(handle process.Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, alive := l.cancels[handle.PID]
	return handle.Valid() && alive
}

func (l *localLauncher) Terminate(handle process.Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cancel, ok := l.cancels[handle.PID]
	if !ok {
		return nil
	}
	cancel()
	delete(l.cancels, handle.PID)
	return nil
}

// handled returns how many service requests a department has
// answered, zero for unknown names.
func (l *localLauncher) handled(name string) int64 {
	l.mu.Lock()
	dept := l.departments[name]
	l.mu.Unlock()
	if dept == nil {
		return 0
	}
	return dept.handled()
}
