// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/MadBomber/smart-message-demos/lib/bus"
	"github.com/MadBomber/smart-message-demos/lib/clock"
	"github.com/MadBomber/smart-message-demos/lib/routing"
	"github.com/MadBomber/smart-message-demos/lib/schema"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDirectory map[string][]string

func (f fakeDirectory) Serving(category string) []string { return f[category] }

type published struct {
	channel  string
	envelope bus.Envelope
}

// notifyPublisher records publishes and signals each on a channel so
// tests can synchronize with a Route call running in a goroutine.
type notifyPublisher struct {
	sent     []published
	notified chan published
}

func newNotifyPublisher() *notifyPublisher {
	return &notifyPublisher{notified: make(chan published, 16)}
}

func (p *notifyPublisher) Publish(_ context.Context, channel string, envelope bus.Envelope) error {
	entry := published{channel: channel, envelope: envelope}
	p.sent = append(p.sent, entry)
	p.notified <- entry
	return nil
}

type routerFixture struct {
	router    *Router
	table     *routing.Table
	live      routing.StaticLiveSet
	publisher *notifyPublisher
	clock     *clock.FakeClock
}

func newRouterFixture(directory fakeDirectory, live routing.StaticLiveSet) *routerFixture {
	table := routing.NewTable(live, quietLogger())
	publisher := newNotifyPublisher()
	clk := clock.Fake(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	router := NewRouter(Options{
		Table:        table,
		Live:         live,
		Directory:    directory,
		Publisher:    publisher,
		Clock:        clk,
		Sender:       "dispatch-center",
		CreationWait: 30 * time.Second,
		Logger:       quietLogger(),
	})
	return &routerFixture{router: router, table: table, live: live, publisher: publisher, clock: clk}
}

func TestRouteResolvesLiveDepartment(t *testing.T) {
	fx := newRouterFixture(
		fakeDirectory{"water": {"water-management"}},
		routing.StaticLiveSet{"water-management": true},
	)

	targets, err := fx.router.Route(context.Background(), schema.ServiceRequest{
		RequestID:   "req-1",
		Description: "water leak on 5th avenue",
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if !reflect.DeepEqual(targets, []string{"water-management"}) {
		t.Errorf("targets = %v, want [water-management]", targets)
	}
}

func TestRouteFollowsConsolidationEdge(t *testing.T) {
	fx := newRouterFixture(
		fakeDirectory{"water": {"water-management"}},
		routing.StaticLiveSet{"water-utilities": true},
	)
	fx.table.Apply(schema.DepartmentChangeNotification{
		ChangeType:          schema.ChangeTypeConsolidated,
		AffectedDepartments: []string{"water-management", "utilities"},
		NewDepartment:       "water-utilities",
		RoutingChanges: map[string]string{
			"water-management": "water-utilities",
			"utilities":        "water-utilities",
		},
	})

	targets, err := fx.router.Route(context.Background(), schema.ServiceRequest{
		RequestID:   "req-2",
		Description: "sewage backup",
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if !reflect.DeepEqual(targets, []string{"water-utilities"}) {
		t.Errorf("targets = %v, want [water-utilities]", targets)
	}
}

func TestRouteDeduplicatesTargets(t *testing.T) {
	live := routing.StaticLiveSet{"water-utilities": true}
	fx := newRouterFixture(
		fakeDirectory{
			"water":   {"water-management"},
			"utility": {"utilities"},
		},
		live,
	)
	fx.table.Apply(schema.DepartmentChangeNotification{
		ChangeType: schema.ChangeTypeConsolidated,
		RoutingChanges: map[string]string{
			"water-management": "water-utilities",
			"utilities":        "water-utilities",
		},
	})

	targets, err := fx.router.Route(context.Background(), schema.ServiceRequest{
		RequestID:   "req-3",
		Description: "flood knocked out the power",
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if !reflect.DeepEqual(targets, []string{"water-utilities"}) {
		t.Errorf("targets = %v, want [water-utilities]", targets)
	}
}

func TestRouteEscalatesAndWaitsForCreation(t *testing.T) {
	fx := newRouterFixture(fakeDirectory{}, routing.StaticLiveSet{})

	type result struct {
		targets []string
		err     error
	}
	done := make(chan result, 1)
	go func() {
		targets, err := fx.router.Route(context.Background(), schema.ServiceRequest{
			RequestID:   "req-4",
			Description: "raccoon infestation",
			Category:    "animal-control",
		})
		done <- result{targets: targets, err: err}
	}()

	entry := <-fx.publisher.notified
	if entry.channel != schema.ChannelDispatch {
		t.Fatalf("escalation channel = %q, want %q", entry.channel, schema.ChannelDispatch)
	}
	needed, err := schema.Decode[schema.ServiceNeededRequest](entry.envelope)
	if err != nil {
		t.Fatalf("decoding escalation: %v", err)
	}
	if needed.DepartmentName != "animal-control" {
		t.Errorf("requested department = %q, want animal-control", needed.DepartmentName)
	}

	fx.live["animal-control"] = true
	fx.router.OnChange(schema.DepartmentChangeNotification{
		ChangeType:          schema.ChangeTypeCreated,
		AffectedDepartments: []string{"animal-control"},
		NewDepartment:       "animal-control",
	})

	got := <-done
	if got.err != nil {
		t.Fatalf("Route: %v", got.err)
	}
	if !reflect.DeepEqual(got.targets, []string{"animal-control"}) {
		t.Errorf("targets = %v, want [animal-control]", got.targets)
	}
}

func TestRouteUndeliverableAfterCreationTimeout(t *testing.T) {
	fx := newRouterFixture(fakeDirectory{}, routing.StaticLiveSet{})

	done := make(chan error, 1)
	go func() {
		_, err := fx.router.Route(context.Background(), schema.ServiceRequest{
			RequestID: "req-5",
			Category:  "animal-control",
		})
		done <- err
	}()

	<-fx.publisher.notified
	fx.clock.BlockUntil(1)
	fx.clock.Advance(31 * time.Second)

	err := <-done
	if !errors.Is(err, ErrUndeliverable) {
		t.Fatalf("err = %v, want ErrUndeliverable", err)
	}
}

func TestRouteContextCancelled(t *testing.T) {
	fx := newRouterFixture(fakeDirectory{}, routing.StaticLiveSet{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := fx.router.Route(ctx, schema.ServiceRequest{
			RequestID: "req-6",
			Category:  "animal-control",
		})
		done <- err
	}()

	<-fx.publisher.notified
	cancel()

	if err := <-done; !errors.Is(err, ErrUndeliverable) {
		t.Fatalf("err = %v, want ErrUndeliverable", err)
	}
}

func TestDispatchForwardsToInboxes(t *testing.T) {
	fx := newRouterFixture(
		fakeDirectory{"water": {"water-management"}},
		routing.StaticLiveSet{"water-management": true},
	)

	targets, err := fx.router.Dispatch(context.Background(), schema.ServiceRequest{
		RequestID:   "req-7",
		Description: "water leak",
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !reflect.DeepEqual(targets, []string{"water-management"}) {
		t.Fatalf("targets = %v", targets)
	}

	last := fx.publisher.sent[len(fx.publisher.sent)-1]
	if want := schema.DepartmentChannel("water-management"); last.channel != want {
		t.Errorf("channel = %q, want %q", last.channel, want)
	}
	if last.envelope.Type != schema.MessageTypeServiceRequest {
		t.Errorf("type = %q, want %q", last.envelope.Type, schema.MessageTypeServiceRequest)
	}
}

func TestOnChangeAppliesToTable(t *testing.T) {
	fx := newRouterFixture(fakeDirectory{}, routing.StaticLiveSet{"b": true})
	fx.router.OnChange(schema.DepartmentChangeNotification{
		ChangeType:     schema.ChangeTypeConsolidated,
		RoutingChanges: map[string]string{"a": "b"},
	})
	if got := fx.table.Resolve("a"); got != "b" {
		t.Errorf("Resolve(a) = %q, want b", got)
	}
}
