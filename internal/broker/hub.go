package broker

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Hub fans published payloads out to the subscribers of each channel. It
// satisfies core.Publisher; Publish never blocks on a subscriber.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]*Topic
	bySub  map[*Subscriber]map[string]struct{}
	log    *zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		topics: make(map[string]*Topic),
		bySub:  make(map[*Subscriber]map[string]struct{}),
		log:    logger,
	}
}

// Subscribe adds s to channel. Returns false if it was already subscribed.
func (h *Hub) Subscribe(s *Subscriber, channel string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	topic, ok := h.topics[channel]
	if !ok {
		topic = NewTopic(channel)
		h.topics[channel] = topic
	}
	if !topic.Add(s) {
		return false
	}

	channels, ok := h.bySub[s]
	if !ok {
		channels = make(map[string]struct{})
		h.bySub[s] = channels
	}
	channels[channel] = struct{}{}
	return true
}

// Unsubscribe removes s from channel. Returns false if it was not subscribed.
func (h *Hub) Unsubscribe(s *Subscriber, channel string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.unsubscribeLocked(s, channel)
}

// UnsubscribeAll removes s from every channel it joined.
func (h *Hub) UnsubscribeAll(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channel := range h.bySub[s] {
		h.unsubscribeLocked(s, channel)
	}
	delete(h.bySub, s)
}

func (h *Hub) unsubscribeLocked(s *Subscriber, channel string) bool {
	topic, ok := h.topics[channel]
	if !ok || !topic.Remove(s) {
		return false
	}
	if topic.Empty() {
		delete(h.topics, channel)
	}
	if channels, ok := h.bySub[s]; ok {
		delete(channels, channel)
		if len(channels) == 0 {
			delete(h.bySub, s)
		}
	}
	return true
}

// Publish delivers payload to the current subscribers of channel.
func (h *Hub) Publish(channel string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	topic, ok := h.topics[channel]
	if !ok {
		return
	}
	size := topic.Len()
	if delivered := topic.Broadcast(Delivery{Channel: channel, Payload: payload}); delivered < size {
		h.log.Warn().
			Str("channel", channel).
			Int("subscribers", size).
			Int("delivered", delivered).
			Msg("dropped deliveries for slow subscribers")
	}
}

// Subscribers returns how many subscribers channel has.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if topic, ok := h.topics[channel]; ok {
		return topic.Len()
	}
	return 0
}

// Channels returns the channels s is subscribed to.
func (h *Hub) Channels(s *Subscriber) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.Keys(h.bySub[s])
}
