package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// connState tracks one physical connection. A connection that is absent from
// the map is either unknown or CLOSED.
type connState struct {
	username string // empty while CONNECTED, set once IDENTIFIED
}

// Lifecycle binds transport connections to usernames and turns disconnects
// into presence updates and LEAVE announcements.
type Lifecycle struct {
	mu    sync.Mutex
	conns map[string]*connState

	registry *Registry
	pub      Publisher
	log      *zerolog.Logger
	now      func() time.Time
}

// NewLifecycle creates a handler that updates registry and announces on pub.
func NewLifecycle(registry *Registry, pub Publisher, logger *zerolog.Logger) *Lifecycle {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Lifecycle{
		conns:    make(map[string]*connState),
		registry: registry,
		pub:      pub,
		log:      logger,
		now:      time.Now,
	}
}

// OnConnect starts tracking connID in the CONNECTED state.
func (l *Lifecycle) OnConnect(connID string) {
	l.mu.Lock()
	if _, ok := l.conns[connID]; !ok {
		l.conns[connID] = &connState{}
	}
	l.mu.Unlock()

	l.log.Debug().Str("conn_id", connID).Msg("connection opened")
}

// Bind moves connID to IDENTIFIED under username and counts the connection
// in the registry. Binding and counting happen under the same lock that
// OnDisconnect takes, so a racing disconnect cannot strand a count.
func (l *Lifecycle) Bind(connID, username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.conns[connID]
	if !ok {
		return coreError(ErrCodeUnknownConnection, ErrUnknownConnection)
	}
	if st.username != "" {
		return coreError(ErrCodeAlreadyJoined, ErrAlreadyJoined)
	}
	st.username = username
	l.registry.Add(username)
	return nil
}

// Username returns the name bound to connID, if any.
func (l *Lifecycle) Username(connID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.conns[connID]
	if !ok || st.username == "" {
		return "", false
	}
	return st.username, true
}

// OnDisconnect closes connID. Identified connections release their presence
// and announce LEAVE followed by the new user list. Calling it again, or for
// a connection that never joined, does nothing visible.
func (l *Lifecycle) OnDisconnect(connID string) {
	l.mu.Lock()
	st, ok := l.conns[connID]
	delete(l.conns, connID)
	if ok && st.username != "" {
		l.registry.Remove(st.username)
	}
	l.mu.Unlock()

	if !ok {
		return
	}
	if st.username == "" {
		l.log.Debug().Str("conn_id", connID).Msg("anonymous connection closed")
		return
	}

	user := st.username
	l.log.Info().Str("conn_id", connID).Str("user", user).Msg("user disconnected")

	l.pub.Publish(ChannelPublic, ChatEvent{
		Kind:      EventLeave,
		Sender:    user,
		Content:   leaveAnnouncement(user),
		Timestamp: l.now(),
	})
	l.pub.Publish(ChannelUsers, l.registry.All())
}

// Connections returns the number of open connections being tracked.
func (l *Lifecycle) Connections() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.conns)
}
