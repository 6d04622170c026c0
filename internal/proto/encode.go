package proto

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/wirechat-relay/internal/core"
)

var validate = validator.New()

// Validate checks struct tags on decoded inbound data.
func Validate(v any) error {
	return validate.Struct(v)
}

// FromEvent converts a core event into its wire form.
func FromEvent(ev core.ChatEvent) ChatMessage {
	ts := ev.Timestamp
	return ChatMessage{
		Type:      ev.Kind.String(),
		Content:   ev.Content,
		Sender:    ev.Sender,
		Receiver:  ev.Receiver,
		Timestamp: &ts,
		SessionID: ev.SessionID,
	}
}

// Payload converts a published core payload into the value written to
// clients. Payloads that are already wire-encoded pass through.
func Payload(v any) any {
	switch p := v.(type) {
	case core.ChatEvent:
		return FromEvent(p)
	case core.Snapshot:
		if p == nil {
			return []string{}
		}
		return []string(p)
	default:
		return v
	}
}

// MarshalPayload renders a published core payload as JSON.
func MarshalPayload(v any) ([]byte, error) {
	return json.Marshal(Payload(v))
}
