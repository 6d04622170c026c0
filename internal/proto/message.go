package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeConnect     = "connect"
	InboundTypeSubscribe   = "subscribe"
	InboundTypeUnsubscribe = "unsubscribe"
	InboundTypeSend        = "chat.sendMessage"
	InboundTypeAddUser     = "chat.addUser"
	InboundTypePrivateSend = "chat.sendPrivateMessage"

	OutboundTypeConnected = "connected"
	OutboundTypeMessage   = "message"
	OutboundTypeError     = "error"
)

// ConnectData optionally opens a session with a protocol version.
type ConnectData struct {
	Protocol int `json:"protocol,omitempty" validate:"gte=0"`
}

// SubscribeData names a destination to (un)subscribe.
type SubscribeData struct {
	Destination string `json:"destination" validate:"required"`
}

// ChatMessage is the payload shape shared by inbound chat frames and
// outbound chat events.
type ChatMessage struct {
	Type      string     `json:"type,omitempty"`
	Content   string     `json:"content"`
	Sender    string     `json:"sender"`
	Receiver  string     `json:"receiver,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type        string `json:"type"`
	Destination string `json:"destination,omitempty"`
	Data        any    `json:"data,omitempty"`
	Error       *Error `json:"error,omitempty"`
}

// Connected acknowledges a connect frame.
type Connected struct {
	ConnectionID string `json:"connection_id"`
	Protocol     int    `json:"protocol"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
