// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/MadBomber/smart-message-demos/lib/bus"
	"github.com/MadBomber/smart-message-demos/lib/clock"
	"github.com/MadBomber/smart-message-demos/lib/config"
	"github.com/MadBomber/smart-message-demos/lib/registry"
	"github.com/MadBomber/smart-message-demos/lib/schema"
	"github.com/MadBomber/smart-message-demos/lib/supervisor"
	"github.com/MadBomber/smart-message-demos/lib/template"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func demoTemplates() []*template.Template {
	return []*template.Template{
		{Name: "water-management", Category: "water", Capabilities: []string{"sewage", "flooding"}, Command: []string{"city-department", "--name", "water-management"}},
		{Name: "utilities", Category: "utility", Capabilities: []string{"power", "gas"}, Command: []string{"city-department", "--name", "utilities"}},
		{Name: "public-works", Category: "infrastructure", Capabilities: []string{"roads", "utility"}, Command: []string{"city-department", "--name", "public-works"}},
		{Name: "emergency-dispatch", Category: "emergency", Capabilities: []string{"policing", "fire", "medical"}, Command: []string{"city-department", "--name", "emergency-dispatch"}},
	}
}

type demoFixture struct {
	city  *city
	clock *clock.FakeClock
	bus   *bus.Local
}

// startDemo wires the whole demo on one local bus and runs the
// orchestrator until the test ends. It returns once the initial scan
// and health sweep have completed.
func startDemo(t *testing.T) *demoFixture {
	t.Helper()

	clk := clock.Fake(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	messageBus := bus.NewLocal()
	logger := quietLogger()
	launcher := newLocalLauncher(messageBus, clk, logger)
	demo := buildCity(config.Default(), clk, messageBus, &registry.StaticScanner{Templates: demoTemplates()}, launcher, logger)

	stopCenter := demo.center.Start(messageBus)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- demo.orchestrator.Run(ctx) }()

	// The orchestrator's initial scan and health sweep run before its
	// ticker registers; once the ticker is waiting, every department
	// has answered its first check over the shared bus.
	clk.BlockUntil(1)

	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("orchestrator run: %v", err)
		}
		demo.center.Drain()
		stopCenter()
	})
	return &demoFixture{city: demo, clock: clk, bus: messageBus}
}

func TestDemoDepartmentsRunningOverSharedBus(t *testing.T) {
	fx := startDemo(t)

	for _, tpl := range demoTemplates() {
		record, ok := fx.city.supervisor.Record(tpl.Name)
		if !ok {
			t.Fatalf("%s not tracked", tpl.Name)
		}
		if record.Status != supervisor.StatusRunning {
			t.Errorf("%s status = %q, want %q", tpl.Name, record.Status, supervisor.StatusRunning)
		}
		if !fx.city.mirror.Contains(tpl.Name) {
			t.Errorf("%s missing from dispatch mirror", tpl.Name)
		}
	}

	live := fx.city.supervisor.Live()
	sort.Strings(live)
	want := []string{"emergency-dispatch", "public-works", "utilities", "water-management"}
	if !reflect.DeepEqual(live, want) {
		t.Errorf("Live() = %v, want %v", live, want)
	}
}

func TestDemoRequestRoutedToDepartment(t *testing.T) {
	fx := startDemo(t)

	envelope, err := schema.Envelope("caller", schema.ServiceRequest{
		RequestID:   "req-1",
		Description: "water main leak on 3rd street",
	})
	if err != nil {
		t.Fatalf("building envelope: %v", err)
	}
	if err := fx.bus.Publish(context.Background(), schema.ChannelDispatch, envelope); err != nil {
		t.Fatalf("publishing request: %v", err)
	}
	fx.city.center.Drain()

	if got := fx.city.launcher.handled("water-management"); got != 1 {
		t.Errorf("water-management handled %d requests, want 1", got)
	}
}
