// Package natsbus relays channel publications between relay processes over a
// NATS subject. Every process publishes to the bus and re-publishes what it
// receives from the bus to its local hub, its own messages included.
//
// User lists are not forwarded as-is: each process announces its own roster
// and every process merges the announcements into one cluster-wide list.
package natsbus

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/utils"
)

const (
	// DefaultSubject is used when Config.Subject is empty.
	DefaultSubject = "wirechat.relay"
	// DefaultPresenceInterval is used when Config.PresenceInterval is zero.
	DefaultPresenceInterval = 5 * time.Second

	// A node that misses this many heartbeats is dropped from the roster.
	missedHeartbeats = 3
)

// Envelope kinds. Publications carry no kind.
const (
	kindPresence = "presence" // a node's roster
	kindSync     = "sync"     // a new node asks everyone for their roster
	kindGoodbye  = "goodbye"  // a node is leaving the bus
)

// Envelope is the bus representation of one publication or presence update.
type Envelope struct {
	Kind    string          `json:"kind,omitempty"`
	Node    string          `json:"node,omitempty"`
	Channel string          `json:"channel,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Users   []string        `json:"users,omitempty"`
}

// Encoder renders a core payload into its JSON wire form.
type Encoder func(payload any) ([]byte, error)

// Config holds NATS connection settings.
type Config struct {
	URL              string
	Subject          string
	Name             string
	PresenceInterval time.Duration
}

type nodeView struct {
	users core.Snapshot
	seen  time.Time
}

// Bridge implements core.Publisher on top of a NATS connection. It also
// implements core.Roster with the merged cluster-wide user list.
type Bridge struct {
	nc       *nats.Conn
	sub      *nats.Subscription
	subject  string
	node     string
	interval time.Duration
	local    core.Publisher
	encode   Encoder
	log      *zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	roster   core.Roster
	views    map[string]nodeView
	lastSeen core.Snapshot

	stop chan struct{}
	done chan struct{}
}

// Connect dials NATS. Deliveries received from the bus are handed to local
// once Start has been called.
func Connect(cfg Config, local core.Publisher, encode Encoder, logger *zerolog.Logger) (*Bridge, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url is required")
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Name == "" {
		cfg.Name = "wirechat-relay"
	}
	if cfg.PresenceInterval <= 0 {
		cfg.PresenceInterval = DefaultPresenceInterval
	}
	if encode == nil {
		encode = json.Marshal
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &Bridge{
		nc:       nc,
		subject:  cfg.Subject,
		node:     utils.NewID(),
		interval: cfg.PresenceInterval,
		local:    local,
		encode:   encode,
		log:      logger,
		now:      time.Now,
		views:    make(map[string]nodeView),
	}, nil
}

// Start subscribes to the bus subject and begins announcing roster, the
// users connected to this process. A nil roster announces nobody.
func (b *Bridge) Start(roster core.Roster) error {
	b.mu.Lock()
	b.roster = roster
	b.mu.Unlock()

	sub, err := b.nc.Subscribe(b.subject, b.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.subject, err)
	}
	b.sub = sub

	if err := b.nc.Flush(); err != nil {
		return fmt.Errorf("flush subscription: %w", err)
	}

	b.send(Envelope{Kind: kindSync, Node: b.node})
	b.send(Envelope{Kind: kindPresence, Node: b.node, Users: b.localUsers()})

	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.heartbeat()

	b.log.Info().Str("subject", b.subject).Str("node", b.node).Msg("nats bridge started")
	return nil
}

// Publish sends payload to every relay process subscribed to the bus.
// Errors are logged, never returned, so callers stay fire-and-forget.
func (b *Bridge) Publish(channel string, payload any) {
	// A user list published here is this node's roster; receivers merge it.
	if snap, ok := payload.(core.Snapshot); ok && channel == core.ChannelUsers {
		b.send(Envelope{Kind: kindPresence, Node: b.node, Channel: channel, Users: snap})
		return
	}

	body, err := b.encode(payload)
	if err != nil {
		b.log.Error().Err(err).Str("channel", channel).Msg("encode payload")
		return
	}
	b.send(Envelope{Channel: channel, Payload: body})
}

// All returns the cluster-wide user list: this node's users plus every
// live peer's last announcement.
func (b *Bridge) All() core.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.mergedLocked()
}

func (b *Bridge) send(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		b.log.Error().Err(err).Str("channel", env.Channel).Msg("encode envelope")
		return
	}
	if err := b.nc.Publish(b.subject, data); err != nil {
		b.log.Error().Err(err).Str("channel", env.Channel).Msg("nats publish")
	}
}

func (b *Bridge) handle(msg *nats.Msg) {
	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		b.log.Warn().Err(err).Msg("drop malformed bus envelope")
		return
	}

	switch env.Kind {
	case "":
		if !core.ValidChannel(env.Channel) {
			b.log.Warn().Str("channel", env.Channel).Msg("drop bus envelope for unknown channel")
			return
		}
		b.local.Publish(env.Channel, env.Payload)
	case kindSync:
		if env.Node != b.node {
			b.send(Envelope{Kind: kindPresence, Node: b.node, Users: b.localUsers()})
		}
	case kindPresence:
		// Announcements tied to the users channel follow a join or leave and
		// are always re-published; heartbeats only when the list changed.
		b.updateView(env.Node, env.Users, env.Channel == core.ChannelUsers)
	case kindGoodbye:
		b.dropView(env.Node)
	default:
		b.log.Warn().Str("kind", env.Kind).Msg("drop bus envelope of unknown kind")
	}
}

func (b *Bridge) updateView(node string, users []string, announce bool) {
	b.mu.Lock()
	if node != b.node && node != "" {
		b.views[node] = nodeView{users: core.Snapshot(users), seen: b.now()}
	}
	merged, changed := b.refreshLocked()
	b.mu.Unlock()

	if announce || changed {
		b.local.Publish(core.ChannelUsers, merged)
	}
}

func (b *Bridge) dropView(node string) {
	if node == b.node {
		return
	}

	b.mu.Lock()
	delete(b.views, node)
	merged, changed := b.refreshLocked()
	b.mu.Unlock()

	if changed {
		b.local.Publish(core.ChannelUsers, merged)
	}
}

// expire forgets peers that stopped sending heartbeats.
func (b *Bridge) expire() {
	ttl := time.Duration(missedHeartbeats) * b.interval

	b.mu.Lock()
	now := b.now()
	for node, view := range b.views {
		if now.Sub(view.seen) > ttl {
			b.log.Warn().Str("node", node).Msg("peer missed heartbeats, dropping its users")
			delete(b.views, node)
		}
	}
	merged, changed := b.refreshLocked()
	b.mu.Unlock()

	if changed {
		b.local.Publish(core.ChannelUsers, merged)
	}
}

func (b *Bridge) heartbeat() {
	defer close(b.done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.send(Envelope{Kind: kindPresence, Node: b.node, Users: b.localUsers()})
			b.expire()
		case <-b.stop:
			return
		}
	}
}

func (b *Bridge) localUsers() core.Snapshot {
	b.mu.Lock()
	roster := b.roster
	b.mu.Unlock()

	if roster == nil {
		return core.Snapshot{}
	}
	return roster.All()
}

func (b *Bridge) mergedLocked() core.Snapshot {
	lists := make([][]string, 0, len(b.views)+1)
	if b.roster != nil {
		lists = append(lists, b.roster.All())
	}
	for _, view := range b.views {
		lists = append(lists, view.users)
	}

	merged := lo.Union(lists...)
	slices.Sort(merged)
	return core.Snapshot(merged)
}

// refreshLocked recomputes the merged list and reports whether it differs
// from the last one handed to the local hub.
func (b *Bridge) refreshLocked() (core.Snapshot, bool) {
	merged := b.mergedLocked()
	changed := !slices.Equal(merged, b.lastSeen)
	b.lastSeen = merged
	return merged, changed
}

// Close announces departure, stops the heartbeat, unsubscribes and closes the
// connection.
func (b *Bridge) Close() error {
	var err error
	if b.stop != nil {
		close(b.stop)
		<-b.done
		b.stop = nil
	}
	if b.sub != nil {
		b.send(Envelope{Kind: kindGoodbye, Node: b.node})
		if flushErr := b.nc.Flush(); flushErr != nil {
			b.log.Warn().Err(flushErr).Msg("flush goodbye")
		}
		err = b.sub.Unsubscribe()
		b.sub = nil
	}
	b.nc.Close()
	return err
}
