// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/MadBomber/smart-message-demos/lib/bus"
	"github.com/MadBomber/smart-message-demos/lib/clock"
	"github.com/MadBomber/smart-message-demos/lib/config"
	"github.com/MadBomber/smart-message-demos/lib/council"
	"github.com/MadBomber/smart-message-demos/lib/dispatch"
	"github.com/MadBomber/smart-message-demos/lib/orchestrator"
	"github.com/MadBomber/smart-message-demos/lib/process"
	"github.com/MadBomber/smart-message-demos/lib/registry"
	"github.com/MadBomber/smart-message-demos/lib/routing"
	"github.com/MadBomber/smart-message-demos/lib/schema"
	"github.com/MadBomber/smart-message-demos/lib/supervisor"
	"github.com/MadBomber/smart-message-demos/lib/version"
)

const serviceName = "city-demo"

// sampleRequests drive the demo's dispatch path, one per tick.
var sampleRequests = []schema.ServiceRequest{
	{RequestID: "demo-1", RequestingService: serviceName, Description: "water main leak on 3rd street", Urgency: "high"},
	{RequestID: "demo-2", RequestingService: serviceName, Description: "power outage downtown", Urgency: "medium"},
	{RequestID: "demo-3", RequestingService: serviceName, Description: "pothole on elm avenue", Urgency: "low"},
	{RequestID: "demo-4", RequestingService: serviceName, Description: "smoke reported at the old mill", Urgency: "high"},
}

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	pflag.StringVar(&configPath, "config", "", "path to the city configuration file")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		version.Print("city-demo")
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	messageBus := bus.NewLocal()
	launcher := newLocalLauncher(messageBus, clk, logger)
	demo := buildCity(cfg, clk, messageBus, &registry.TemplateScanner{Dir: cfg.Templates.Dir}, launcher, logger)

	// The center subscribes before the orchestrator's initial scan so
	// the first announcements land in the mirror.
	unsubscribe := demo.center.Start(messageBus)
	defer unsubscribe()
	defer demo.center.Drain()

	go demoLoop(ctx, clk, demo, messageBus, cfg.Supervision.Tick(), logger)

	logger.Info("city demo starting",
		"templates", cfg.Templates.Dir,
		"tick", cfg.Supervision.Tick(),
	)
	return demo.orchestrator.Run(ctx)
}

// city is the demo's full wiring: orchestrator and dispatch center
// sharing one local bus, with departments spawned in-process.
type city struct {
	orchestrator *orchestrator.Orchestrator
	center       *dispatch.Center
	supervisor   *supervisor.Supervisor
	mirror       *dispatch.Mirror
	launcher     *localLauncher
}

func buildCity(cfg *config.Config, clk clock.Clock, messageBus bus.Bus, scanner registry.Scanner, launcher *localLauncher, logger *slog.Logger) *city {
	index := registry.NewIndex()

	super := supervisor.New(supervisor.Options{
		Clock:            clk,
		Launcher:         launcher,
		FailureThreshold: cfg.Supervision.FailureThreshold,
		MaxRestarts:      cfg.Supervision.MaxRestarts,
		SilenceWindow:    cfg.Supervision.SilenceWindow(),
		Logger:           logger,
	})
	health := supervisor.NewHealthProtocol(messageBus, super, serviceName, logger)
	super.SetChecks(health)

	o := orchestrator.New(orchestrator.Options{
		Scanner:    scanner,
		Index:      index,
		Supervisor: super,
		Health:     health,
		Evaluator:  council.NewEvaluator(cfg.Council, clk, logger),
		Dispatcher: council.NewDispatcher(super, index, cfg.Routing, messageBus, serviceName, logger),
		Table:      routing.NewTable(super, logger),
		Bus:        messageBus,
		Clock:      clk,
		Tick:       cfg.Supervision.Tick(),
		Sender:     serviceName,
		Logger:     logger,
	})

	mirror := dispatch.NewMirror()
	centerTable := routing.NewTable(mirror, logger)
	router := dispatch.NewRouter(dispatch.Options{
		Classifier:   dispatch.NewRuleClassifier(dispatch.DefaultRules()),
		Table:        centerTable,
		Live:         mirror,
		Directory:    mirror,
		Publisher:    messageBus,
		Clock:        clk,
		Sender:       serviceName,
		CreationWait: cfg.Dispatch.CreationWait(),
		Logger:       logger,
	})
	center := dispatch.NewCenter(dispatch.CenterOptions{
		Mirror:       mirror,
		Table:        centerTable,
		Router:       router,
		SnapshotPath: cfg.Routing.SnapshotPath,
		Logger:       logger,
	})

	return &city{
		orchestrator: o,
		center:       center,
		supervisor:   super,
		mirror:       mirror,
		launcher:     launcher,
	}
}

// demoLoop publishes one sample request per tick and logs the live
// department roster.
func demoLoop(ctx context.Context, clk clock.Clock, demo *city, messageBus bus.Bus, every time.Duration, logger *slog.Logger) {
	ticker := clk.NewTicker(every)
	defer ticker.Stop()

	next := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if next < len(sampleRequests) {
				envelope, err := schema.Envelope(serviceName, sampleRequests[next])
				if err != nil {
					logger.Error("wrapping sample request failed", "error", err)
				} else if err := messageBus.Publish(ctx, schema.ChannelDispatch, envelope); err != nil {
					logger.Error("publishing sample request failed", "error", err)
				}
				next++
			}

			live := demo.supervisor.Live()
			sort.Strings(live)
			logger.Info("city status", "live", live)
		}
	}
}
