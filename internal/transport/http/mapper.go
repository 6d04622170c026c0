package http

import (
	"encoding/json"
	"errors"

	"github.com/vovakirdan/wirechat-relay/internal/broker"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

const (
	errCodeInvalidMessage     = "invalid_message"
	errCodeInvalidDestination = "invalid_destination"
	errCodeUnsupportedVersion = "unsupported_version"
	errCodeRateLimited        = "rate_limited"
)

var chatCommands = map[string]core.CommandKind{
	proto.InboundTypeSend:        core.CommandSend,
	proto.InboundTypeAddUser:     core.CommandJoin,
	proto.InboundTypePrivateSend: core.CommandPrivateSend,
}

func isChatFrame(inbound proto.Inbound) bool {
	_, ok := chatCommands[inbound.Type]
	return ok
}

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	kind, ok := chatCommands[inbound.Type]
	if !ok {
		return nil, &proto.Error{Code: errCodeInvalidMessage, Msg: "unknown message type"}
	}

	var msg proto.ChatMessage
	if err := decodeData(inbound.Data, &msg); err != nil {
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid message payload"}
	}

	// Client-supplied type and timestamp are dropped.
	return &core.Command{
		Kind: kind,
		Payload: core.Inbound{
			Sender:    msg.Sender,
			Content:   msg.Content,
			Receiver:  msg.Receiver,
			SessionID: msg.SessionID,
		},
	}, nil
}

func inboundToDestination(inbound proto.Inbound) (string, *proto.Error) {
	var sub proto.SubscribeData
	if err := decodeData(inbound.Data, &sub); err != nil {
		return "", &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid subscribe payload"}
	}
	if err := proto.Validate(sub); err != nil {
		return "", &proto.Error{Code: core.ErrCodeBadRequest, Msg: "destination is required"}
	}
	if !core.ValidChannel(sub.Destination) {
		return "", &proto.Error{Code: errCodeInvalidDestination, Msg: "unknown destination " + sub.Destination}
	}
	return sub.Destination, nil
}

func inboundToConnect(inbound proto.Inbound) *proto.Error {
	var data proto.ConnectData
	if err := decodeData(inbound.Data, &data); err != nil {
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid connect payload"}
	}
	if err := proto.Validate(data); err != nil {
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid protocol version"}
	}
	if data.Protocol != 0 && data.Protocol != proto.ProtocolVersion {
		return &proto.Error{Code: errCodeUnsupportedVersion, Msg: "unsupported protocol version"}
	}
	return nil
}

// decodeData accepts an absent data field as an empty object.
func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

func errorFromCore(err error) *proto.Error {
	var coreErr *core.CoreError
	if errors.As(err, &coreErr) {
		return &proto.Error{Code: coreErr.Code, Msg: coreErr.Message}
	}
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: err.Error()}
}

func outboundFromDelivery(d broker.Delivery) proto.Outbound {
	return proto.Outbound{
		Type:        proto.OutboundTypeMessage,
		Destination: d.Channel,
		Data:        proto.Payload(d.Payload),
	}
}

func outboundError(protoErr *proto.Error) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr}
}
