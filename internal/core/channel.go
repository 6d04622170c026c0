package core

import "strings"

const (
	// ChannelPublic carries CHAT, JOIN and LEAVE events for everyone.
	ChannelPublic = "/topic/public"
	// ChannelUsers carries presence snapshots.
	ChannelUsers = "/topic/users"

	privatePrefix = "/queue/private."
)

// PrivateChannel returns the channel a receiver listens on for direct messages.
func PrivateChannel(receiver string) string {
	return privatePrefix + strings.TrimSpace(receiver)
}

// ValidChannel reports whether name is one of the relay channels. Private
// channels must be spelled the way PrivateChannel builds them, so a receiver
// padded with whitespace is rejected.
func ValidChannel(name string) bool {
	switch name {
	case ChannelPublic, ChannelUsers:
		return true
	}
	rest, ok := strings.CutPrefix(name, privatePrefix)
	return ok && rest != "" && rest == strings.TrimSpace(rest)
}
