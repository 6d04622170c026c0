package core

import (
	"sync"
	"testing"
	"time"
)

type published struct {
	Channel string
	Payload any
}

// recorder is a Publisher that keeps everything it is handed.
type recorder struct {
	mu   sync.Mutex
	msgs []published
}

func (r *recorder) Publish(channel string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, published{Channel: channel, Payload: payload})
}

func (r *recorder) all() []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]published, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}

var fixedTime = time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)

func newTestRelay(t *testing.T) (*Relay, *recorder) {
	t.Helper()

	rec := &recorder{}
	relay := NewRelay(rec, nil)
	relay.Router.now = func() time.Time { return fixedTime }
	relay.Lifecycle.now = func() time.Time { return fixedTime }
	return relay, rec
}

func mustChatEvent(t *testing.T, p published, channel string, kind EventKind) ChatEvent {
	t.Helper()

	if p.Channel != channel {
		t.Fatalf("expected channel %q, got %q", channel, p.Channel)
	}
	ev, ok := p.Payload.(ChatEvent)
	if !ok {
		t.Fatalf("expected ChatEvent payload, got %T", p.Payload)
	}
	if ev.Kind != kind {
		t.Fatalf("expected kind %v, got %v", kind, ev.Kind)
	}
	return ev
}

func mustSnapshot(t *testing.T, p published) Snapshot {
	t.Helper()

	if p.Channel != ChannelUsers {
		t.Fatalf("expected channel %q, got %q", ChannelUsers, p.Channel)
	}
	snap, ok := p.Payload.(Snapshot)
	if !ok {
		t.Fatalf("expected Snapshot payload, got %T", p.Payload)
	}
	return snap
}
