package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSend broadcasts a chat message to everyone.
	CommandSend CommandKind = iota
	// CommandJoin announces the connection's user.
	CommandJoin
	// CommandPrivateSend delivers a chat message to a single receiver.
	CommandPrivateSend
)

// Inbound is the chat payload carried by a command. Timestamps and kinds
// supplied by clients are never part of it.
type Inbound struct {
	Sender    string
	Content   string
	Receiver  string
	SessionID string
}

// Command represents an action requested over a connection.
type Command struct {
	Kind    CommandKind
	Payload Inbound
}
