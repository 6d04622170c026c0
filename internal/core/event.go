package core

import "time"

// EventKind tags a ChatEvent.
type EventKind int

const (
	// EventChat is a regular chat message, broadcast or direct.
	EventChat EventKind = iota
	// EventJoin announces that a user joined the chat.
	EventJoin
	// EventLeave announces that a user left the chat.
	EventLeave
)

// String returns the wire name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventChat:
		return "CHAT"
	case EventJoin:
		return "JOIN"
	case EventLeave:
		return "LEAVE"
	default:
		return "UNKNOWN"
	}
}

// ChatEvent is an outbound event produced by the router or the lifecycle handler.
type ChatEvent struct {
	Kind      EventKind
	Sender    string
	Content   string
	Receiver  string // empty unless the event is a direct message
	Timestamp time.Time
	SessionID string // opaque, passed through untouched
}

// Snapshot is a point-in-time copy of present usernames.
type Snapshot []string

// Contains reports whether username is part of the snapshot.
func (s Snapshot) Contains(username string) bool {
	for _, u := range s {
		if u == username {
			return true
		}
	}
	return false
}

func joinAnnouncement(user string) string {
	return user + " joined the chat!"
}

func leaveAnnouncement(user string) string {
	return user + " left the chat!"
}
