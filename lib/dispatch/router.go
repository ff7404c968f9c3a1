// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MadBomber/smart-message-demos/lib/bus"
	"github.com/MadBomber/smart-message-demos/lib/clock"
	"github.com/MadBomber/smart-message-demos/lib/routing"
	"github.com/MadBomber/smart-message-demos/lib/schema"
)

// ErrUndeliverable reports that a request could not reach any live
// department and the creation escalation did not produce one in time.
var ErrUndeliverable = errors.New("request undeliverable")

// Directory answers which departments serve a category. The registry
// index satisfies it on the orchestrator side; dispatch-center
// deployments back it with their announcement mirror.
type Directory interface {
	Serving(category string) []string
}

// Publisher is the slice of the message bus the router needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, envelope bus.Envelope) error
}

// Options configures a Router.
type Options struct {
	Classifier Classifier
	Table      *routing.Table
	Live       routing.LiveSet
	Directory  Directory
	Publisher  Publisher
	Clock      clock.Clock

	// Sender is the identity stamped on outbound envelopes.
	Sender string

	// CreationWait bounds how long Route waits for a missing
	// department to be created.
	CreationWait time.Duration

	Logger *slog.Logger
}

// Router resolves inbound service requests to live departments and
// forwards each request to its targets' inbox channels.
type Router struct {
	classifier   Classifier
	table        *routing.Table
	live         routing.LiveSet
	directory    Directory
	publisher    Publisher
	clock        clock.Clock
	sender       string
	creationWait time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	waiters map[string][]chan struct{}
}

// NewRouter returns a Router over the given collaborators.
func NewRouter(opts Options) *Router {
	classifier := opts.Classifier
	if classifier == nil {
		classifier = NewRuleClassifier(DefaultRules())
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		classifier:   classifier,
		table:        opts.Table,
		live:         opts.Live,
		directory:    opts.Directory,
		publisher:    opts.Publisher,
		clock:        opts.Clock,
		sender:       opts.Sender,
		creationWait: opts.CreationWait,
		logger:       logger,
	}
}

// Route resolves the request to target department names. For each
// classified category it resolves every serving department through
// the routing table and keeps the live results. A category nobody
// serves escalates: the router asks the orchestrator to create the
// department and waits, bounded by the creation wait, for the
// "created" change to arrive. A request that ends with no targets at
// all is undeliverable.
func (r *Router) Route(ctx context.Context, req schema.ServiceRequest) ([]string, error) {
	var targets []string
	seen := make(map[string]bool)

	for _, category := range r.classifier.Classify(req) {
		resolved := r.resolveCategory(category)
		if len(resolved) == 0 {
			created, err := r.requestCreation(ctx, req, category)
			if err != nil {
				r.logger.Warn("category has no reachable department",
					"request_id", req.RequestID,
					"category", category,
					"error", err,
				)
				continue
			}
			resolved = []string{created}
		}
		for _, name := range resolved {
			if !seen[name] {
				seen[name] = true
				targets = append(targets, name)
			}
		}
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("routing request %s: %w", req.RequestID, ErrUndeliverable)
	}
	return targets, nil
}

// Dispatch routes the request and forwards it to each target's inbox
// channel.
func (r *Router) Dispatch(ctx context.Context, req schema.ServiceRequest) ([]string, error) {
	targets, err := r.Route(ctx, req)
	if err != nil {
		return nil, err
	}
	envelope, err := schema.Envelope(r.sender, req)
	if err != nil {
		return nil, fmt.Errorf("wrapping request %s: %w", req.RequestID, err)
	}
	for _, target := range targets {
		if err := r.publisher.Publish(ctx, schema.DepartmentChannel(target), envelope); err != nil {
			return nil, fmt.Errorf("forwarding request %s to %s: %w", req.RequestID, target, err)
		}
	}
	return targets, nil
}

// resolveCategory returns the live resolution targets for one
// category, deduplicated.
func (r *Router) resolveCategory(category string) []string {
	var live []string
	seen := make(map[string]bool)
	for _, candidate := range r.directory.Serving(category) {
		resolved := r.table.Resolve(candidate)
		if !r.live.Contains(resolved) {
			continue
		}
		if !seen[resolved] {
			seen[resolved] = true
			live = append(live, resolved)
		}
	}
	return live
}

// requestCreation publishes a service-needed escalation for a
// category and waits for the matching "created" change. The
// department name requested is the category name itself; the
// orchestrator maps it to a deployable template.
func (r *Router) requestCreation(ctx context.Context, req schema.ServiceRequest, category string) (string, error) {
	name := category
	ready := r.addWaiter(name)
	defer r.removeWaiter(name, ready)

	needed := schema.ServiceNeededRequest{
		RequestID:         req.RequestID,
		RequestingService: r.sender,
		DepartmentName:    name,
		Category:          category,
		Reason:            "no live department serves category",
	}
	envelope, err := schema.Envelope(r.sender, needed)
	if err != nil {
		return "", fmt.Errorf("wrapping service-needed request: %w", err)
	}
	if err := r.publisher.Publish(ctx, schema.ChannelDispatch, envelope); err != nil {
		return "", fmt.Errorf("publishing service-needed request: %w", err)
	}

	select {
	case <-ready:
		// The orchestrator may have deployed the department under a
		// different template name; the created change carries the
		// routing entry, so resolve again.
		return r.table.Resolve(name), nil
	case <-r.clock.After(r.creationWait):
		return "", fmt.Errorf("department %s not created within %s", name, r.creationWait)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// OnChange applies a change notification to the routing mirror and
// wakes any Route call waiting on a created department.
func (r *Router) OnChange(change schema.DepartmentChangeNotification) {
	r.table.Apply(change)

	if change.ChangeType != schema.ChangeTypeCreated {
		return
	}
	names := make([]string, 0, len(change.AffectedDepartments)+1)
	names = append(names, change.AffectedDepartments...)
	if change.NewDepartment != "" {
		names = append(names, change.NewDepartment)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		for _, ready := range r.waiters[name] {
			close(ready)
		}
		delete(r.waiters, name)
	}
}

func (r *Router) addWaiter(name string) chan struct{} {
	ready := make(chan struct{})
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.waiters == nil {
		r.waiters = make(map[string][]chan struct{})
	}
	r.waiters[name] = append(r.waiters[name], ready)
	return ready
}

// removeWaiter drops a waiter that is no longer listening. A waiter
// already woken by OnChange is gone from the map; removal is a no-op.
func (r *Router) removeWaiter(name string, ready chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := r.waiters[name]
	for i, candidate := range pending {
		if candidate == ready {
			r.waiters[name] = append(pending[:i], pending[i+1:]...)
			break
		}
	}
	if len(r.waiters[name]) == 0 {
		delete(r.waiters, name)
	}
}
