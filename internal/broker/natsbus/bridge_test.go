package natsbus

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/broker"
	"github.com/vovakirdan/wirechat-relay/internal/core"
)

func startNATS(t *testing.T) string {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("new nats server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatalf("nats server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns.ClientURL()
}

func nopLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

type node struct {
	bridge   *Bridge
	hub      *broker.Hub
	registry *core.Registry
}

func newNode(t *testing.T, url string) *node {
	t.Helper()

	hub := broker.NewHub(nil)
	registry := core.NewRegistry()
	bridge, err := Connect(Config{URL: url, Subject: "test.relay", PresenceInterval: time.Minute}, hub, nil, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := bridge.Start(registry); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = bridge.Close() })
	return &node{bridge: bridge, hub: hub, registry: registry}
}

// join mimics the router: count the user, then publish the local list.
func (n *node) join(user string) {
	n.registry.Add(user)
	n.bridge.Publish(core.ChannelUsers, n.registry.All())
}

func (n *node) subscribe(t *testing.T, channels ...string) *broker.Subscriber {
	t.Helper()

	sub := broker.NewSubscriber("observer", 32)
	for _, ch := range channels {
		n.hub.Subscribe(sub, ch)
	}
	return sub
}

func mustDelivery(t *testing.T, s *broker.Subscriber) broker.Delivery {
	t.Helper()

	select {
	case d := <-s.Deliveries:
		return d
	case <-time.After(3 * time.Second):
		t.Fatalf("no delivery received")
	}
	return broker.Delivery{}
}

// waitUsers skips user lists until one equals want.
func waitUsers(t *testing.T, s *broker.Subscriber, want ...string) {
	t.Helper()

	deadline := time.After(3 * time.Second)
	var last core.Snapshot
	for {
		select {
		case d := <-s.Deliveries:
			snap, ok := d.Payload.(core.Snapshot)
			if d.Channel != core.ChannelUsers || !ok {
				continue
			}
			last = snap
			if slices.Equal([]string(snap), want) {
				return
			}
		case <-deadline:
			t.Fatalf("user list %v never became %v", last, want)
		}
	}
}

func waitRoster(t *testing.T, b *Bridge, want ...string) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if slices.Equal([]string(b.All()), want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("roster %v never became %v", b.All(), want)
}

func TestBridgeFansOutAcrossNodes(t *testing.T) {
	url := startNATS(t)
	a := newNode(t, url)
	b := newNode(t, url)

	subA := a.subscribe(t, core.ChannelPublic)
	subB := b.subscribe(t, core.ChannelPublic)

	a.bridge.Publish(core.ChannelPublic, map[string]string{"content": "hello"})

	for _, sub := range []*broker.Subscriber{subA, subB} {
		d := mustDelivery(t, sub)
		if d.Channel != core.ChannelPublic {
			t.Fatalf("unexpected channel %s", d.Channel)
		}
		raw, ok := d.Payload.(json.RawMessage)
		if !ok {
			t.Fatalf("expected raw JSON payload, got %T", d.Payload)
		}
		var msg map[string]string
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		if msg["content"] != "hello" {
			t.Fatalf("unexpected message: %v", msg)
		}
	}
}

func TestBridgeKeepsJoinBeforeUserList(t *testing.T) {
	url := startNATS(t)
	n := newNode(t, url)
	sub := n.subscribe(t, core.ChannelPublic, core.ChannelUsers)

	n.registry.Add("bob")
	n.bridge.Publish(core.ChannelPublic, map[string]string{"type": "JOIN"})
	n.bridge.Publish(core.ChannelUsers, n.registry.All())

	if d := mustDelivery(t, sub); d.Channel != core.ChannelPublic {
		t.Fatalf("join announcement must arrive first, got %s", d.Channel)
	}
	d := mustDelivery(t, sub)
	snap, ok := d.Payload.(core.Snapshot)
	if d.Channel != core.ChannelUsers || !ok || !snap.Contains("bob") {
		t.Fatalf("expected user list with bob second, got %s %v", d.Channel, d.Payload)
	}
}

func TestBridgeMergesUserListsAcrossNodes(t *testing.T) {
	url := startNATS(t)
	a := newNode(t, url)
	b := newNode(t, url)
	subA := a.subscribe(t, core.ChannelUsers)
	subB := b.subscribe(t, core.ChannelUsers)

	a.join("bob")
	waitUsers(t, subA, "bob")
	waitUsers(t, subB, "bob")

	b.join("carol")
	waitUsers(t, subA, "bob", "carol")
	waitUsers(t, subB, "bob", "carol")

	waitRoster(t, a.bridge, "bob", "carol")
	waitRoster(t, b.bridge, "bob", "carol")

	// bob leaves node A while carol stays on B.
	a.registry.Remove("bob")
	a.bridge.Publish(core.ChannelUsers, a.registry.All())
	waitUsers(t, subB, "carol")
	waitRoster(t, a.bridge, "carol")
}

func TestBridgeLateNodeLearnsExistingUsers(t *testing.T) {
	url := startNATS(t)
	a := newNode(t, url)
	a.join("bob")

	b := newNode(t, url)
	waitRoster(t, b.bridge, "bob")
}

func TestBridgeForgetsNodeOnClose(t *testing.T) {
	url := startNATS(t)
	a := newNode(t, url)
	b := newNode(t, url)
	subA := a.subscribe(t, core.ChannelUsers)

	b.join("carol")
	waitUsers(t, subA, "carol")

	if err := b.bridge.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	waitUsers(t, subA)
	waitRoster(t, a.bridge)
}

func TestBridgeExpiresSilentNodes(t *testing.T) {
	hub := broker.NewHub(nil)
	sub := broker.NewSubscriber("observer", 8)
	hub.Subscribe(sub, core.ChannelUsers)

	clock := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)
	b := &Bridge{
		node:     "self",
		interval: time.Second,
		local:    hub,
		log:      nopLogger(),
		now:      func() time.Time { return clock },
		views:    make(map[string]nodeView),
	}

	b.updateView("peer", []string{"dave"}, true)
	waitUsers(t, sub, "dave")

	clock = clock.Add(2 * time.Second)
	b.expire()
	if !b.All().Contains("dave") {
		t.Fatalf("peer within its heartbeat window must be kept")
	}

	clock = clock.Add(5 * time.Second)
	b.expire()
	if got := b.All(); len(got) != 0 {
		t.Fatalf("silent peer must be dropped, roster is %v", got)
	}
	waitUsers(t, sub)
}

func TestConnectRequiresURL(t *testing.T) {
	if _, err := Connect(Config{}, broker.NewHub(nil), nil, nil); err == nil {
		t.Fatalf("expected error without url")
	}
}
