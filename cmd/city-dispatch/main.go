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
	"github.com/MadBomber/smart-message-demos/lib/dispatch"
	"github.com/MadBomber/smart-message-demos/lib/process"
	"github.com/MadBomber/smart-message-demos/lib/routing"
	"github.com/MadBomber/smart-message-demos/lib/version"
)

const serviceName = "dispatch-center"

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
		version.Print("city-dispatch")
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

	messageBus := bus.NewLocal()
	mirror := dispatch.NewMirror()
	table := routing.NewTable(mirror, logger)
	router := dispatch.NewRouter(dispatch.Options{
		Classifier:   dispatch.NewRuleClassifier(dispatch.DefaultRules()),
		Table:        table,
		Live:         mirror,
		Directory:    mirror,
		Publisher:    messageBus,
		Clock:        clock.Real(),
		Sender:       serviceName,
		CreationWait: cfg.Dispatch.CreationWait(),
		Logger:       logger,
	})

	center := dispatch.NewCenter(dispatch.CenterOptions{
		Mirror:       mirror,
		Table:        table,
		Router:       router,
		SnapshotPath: cfg.Routing.SnapshotPath,
		Logger:       logger,
	})
	return center.Run(ctx, messageBus)
}
