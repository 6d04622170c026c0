package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/broker"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to the relay.
type WSHandler struct {
	relay *core.Relay
	hub   *broker.Hub
	cfg   *config.Config
	log   *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(relay *core.Relay, hub *broker.Hub, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{relay: relay, hub: hub, cfg: cfg, log: logger}
}

// session is the per-connection state owned by the handler goroutines.
type session struct {
	id      string
	conn    *websocket.Conn
	sub     *broker.Subscriber
	limiter *rateLimiter
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.AllowedOrigins,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	id := utils.NewID()
	s := &session{
		id:      id,
		conn:    conn,
		sub:     broker.NewSubscriber(id, h.cfg.ClientBuffer),
		limiter: newRateLimiter(h.cfg.RateLimitPerMinute),
	}

	h.relay.Lifecycle.OnConnect(s.id)
	defer h.relay.Lifecycle.OnDisconnect(s.id)
	defer h.hub.UnsubscribeAll(s.sub)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, s)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, s)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if code := websocket.CloseStatus(err); code != -1 {
			status = code
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", s.id).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, s *session) error {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", s.id).Msg("malformed ws frame")
			if writeErr := h.writeError(ctx, s, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed frame"}); writeErr != nil {
				return writeErr
			}
			continue
		}

		if protoErr := h.handleInbound(ctx, s, inbound); protoErr != nil {
			if writeErr := h.writeError(ctx, s, protoErr); writeErr != nil {
				return writeErr
			}
		}
	}
}

func (h *WSHandler) handleInbound(ctx context.Context, s *session, inbound proto.Inbound) *proto.Error {
	switch inbound.Type {
	case proto.InboundTypeConnect:
		if protoErr := inboundToConnect(inbound); protoErr != nil {
			return protoErr
		}
		if err := wsjson.Write(ctx, s.conn, proto.Outbound{
			Type: proto.OutboundTypeConnected,
			Data: proto.Connected{ConnectionID: s.id, Protocol: proto.ProtocolVersion},
		}); err != nil {
			h.log.Warn().Err(err).Str("conn_id", s.id).Msg("write connected")
		}
		return nil
	case proto.InboundTypeSubscribe:
		dest, protoErr := inboundToDestination(inbound)
		if protoErr != nil {
			return protoErr
		}
		h.hub.Subscribe(s.sub, dest)
		return nil
	case proto.InboundTypeUnsubscribe:
		dest, protoErr := inboundToDestination(inbound)
		if protoErr != nil {
			return protoErr
		}
		h.hub.Unsubscribe(s.sub, dest)
		return nil
	}

	if isChatFrame(inbound) && !s.limiter.allow() {
		return &proto.Error{Code: errCodeRateLimited, Msg: "too many messages"}
	}

	cmd, protoErr := inboundToCommand(inbound)
	if protoErr != nil {
		return protoErr
	}
	if _, err := h.relay.Router.Dispatch(s.id, *cmd); err != nil {
		h.log.Debug().Err(err).Str("conn_id", s.id).Str("type", inbound.Type).Msg("command rejected")
		return errorFromCore(err)
	}
	return nil
}

func (h *WSHandler) writeLoop(ctx context.Context, s *session) error {
	for {
		select {
		case d := <-s.sub.Deliveries:
			if err := wsjson.Write(ctx, s.conn, outboundFromDelivery(d)); err != nil {
				h.log.Error().Err(err).Str("conn_id", s.id).Msg("write ws delivery")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, s *session, protoErr *proto.Error) error {
	return wsjson.Write(ctx, s.conn, outboundError(protoErr))
}
