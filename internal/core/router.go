package core

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Router turns inbound chat intents into published events. It keeps no state
// of its own.
type Router struct {
	registry  *Registry
	lifecycle *Lifecycle
	pub       Publisher
	log       *zerolog.Logger
	now       func() time.Time
}

// NewRouter creates a router publishing on pub.
func NewRouter(registry *Registry, lifecycle *Lifecycle, pub Publisher, logger *zerolog.Logger) *Router {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Router{
		registry:  registry,
		lifecycle: lifecycle,
		pub:       pub,
		log:       logger,
		now:       time.Now,
	}
}

// Dispatch runs the router operation matching cmd.Kind on behalf of connID.
func (r *Router) Dispatch(connID string, cmd Command) (ChatEvent, error) {
	switch cmd.Kind {
	case CommandSend:
		return r.RouteBroadcast(cmd.Payload), nil
	case CommandJoin:
		return r.RouteJoin(connID, cmd.Payload)
	case CommandPrivateSend:
		return r.RoutePrivate(cmd.Payload)
	default:
		return ChatEvent{}, coreError(ErrCodeBadRequest, ErrBadRequest)
	}
}

// RouteBroadcast publishes a chat message to the public channel. Content is
// forwarded as-is, empty or not.
func (r *Router) RouteBroadcast(in Inbound) ChatEvent {
	ev := ChatEvent{
		Kind:      EventChat,
		Sender:    in.Sender,
		Content:   in.Content,
		Timestamp: r.now(),
		SessionID: in.SessionID,
	}
	r.log.Debug().Str("sender", ev.Sender).Msg("broadcast message")
	r.pub.Publish(ChannelPublic, ev)
	return ev
}

// RouteJoin identifies connID as the sender, then announces the join and the
// updated user list, in that order. Nothing is mutated or published when the
// join is rejected.
func (r *Router) RouteJoin(connID string, in Inbound) (ChatEvent, error) {
	user := strings.TrimSpace(in.Sender)
	if user == "" {
		return ChatEvent{}, coreError(ErrCodeBadRequest, ErrBlankSender)
	}

	if err := r.lifecycle.Bind(connID, user); err != nil {
		r.log.Debug().Err(err).Str("conn_id", connID).Str("user", user).Msg("join rejected")
		return ChatEvent{}, err
	}
	r.log.Info().Str("conn_id", connID).Str("user", user).Msg("user joined")

	ev := ChatEvent{
		Kind:      EventJoin,
		Sender:    user,
		Content:   joinAnnouncement(user),
		Timestamp: r.now(),
		SessionID: in.SessionID,
	}
	r.pub.Publish(ChannelPublic, ev)
	r.pub.Publish(ChannelUsers, r.registry.All())
	return ev, nil
}

// RoutePrivate publishes a chat message on the receiver's private channel.
// Whether the receiver is online is not checked.
func (r *Router) RoutePrivate(in Inbound) (ChatEvent, error) {
	receiver := strings.TrimSpace(in.Receiver)
	if receiver == "" {
		r.log.Debug().Str("sender", in.Sender).Msg("private message without receiver")
		return ChatEvent{}, coreError(ErrCodeMissingReceiver, ErrMissingReceiver)
	}

	ev := ChatEvent{
		Kind:      EventChat,
		Sender:    in.Sender,
		Content:   in.Content,
		Receiver:  receiver,
		Timestamp: r.now(),
		SessionID: in.SessionID,
	}
	r.log.Debug().Str("sender", ev.Sender).Str("receiver", receiver).Msg("private message")
	r.pub.Publish(PrivateChannel(receiver), ev)
	return ev, nil
}
