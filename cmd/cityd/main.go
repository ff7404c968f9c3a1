// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/MadBomber/smart-message-demos/lib/bus"
	"github.com/MadBomber/smart-message-demos/lib/clock"
	"github.com/MadBomber/smart-message-demos/lib/config"
	"github.com/MadBomber/smart-message-demos/lib/council"
	"github.com/MadBomber/smart-message-demos/lib/orchestrator"
	"github.com/MadBomber/smart-message-demos/lib/process"
	"github.com/MadBomber/smart-message-demos/lib/registry"
	"github.com/MadBomber/smart-message-demos/lib/routing"
	"github.com/MadBomber/smart-message-demos/lib/supervisor"
	"github.com/MadBomber/smart-message-demos/lib/version"
)

const serviceName = "city-orchestrator"

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
		version.Print("cityd")
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
	index := registry.NewIndex()

	super := supervisor.New(supervisor.Options{
		Clock:            clk,
		Launcher:         &process.ExecLauncher{},
		FailureThreshold: cfg.Supervision.FailureThreshold,
		MaxRestarts:      cfg.Supervision.MaxRestarts,
		SilenceWindow:    cfg.Supervision.SilenceWindow(),
		Logger:           logger,
	})
	health := supervisor.NewHealthProtocol(messageBus, super, serviceName, logger)
	super.SetChecks(health)

	table := routing.NewTable(super, logger)

	o := orchestrator.New(orchestrator.Options{
		Scanner:    &registry.TemplateScanner{Dir: cfg.Templates.Dir},
		Index:      index,
		Supervisor: super,
		Health:     health,
		Evaluator:  council.NewEvaluator(cfg.Council, clk, logger),
		Dispatcher: council.NewDispatcher(super, index, cfg.Routing, messageBus, serviceName, logger),
		Table:      table,
		Bus:        messageBus,
		Clock:      clk,
		Tick:       cfg.Supervision.Tick(),
		Sender:     serviceName,
		Logger:     logger,
	})

	logger.Info("orchestrator starting",
		"templates", cfg.Templates.Dir,
		"tick", cfg.Supervision.Tick(),
		"environment", cfg.Environment,
	)
	return o.Run(ctx)
}
