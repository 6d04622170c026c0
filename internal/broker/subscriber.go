package broker

import "sync/atomic"

// Delivery is a payload published on a channel.
type Delivery struct {
	Channel string
	Payload any
}

// Subscriber is one consumer of channels, usually a WebSocket connection.
type Subscriber struct {
	ID         string
	Deliveries chan Delivery

	dropped atomic.Int64
}

// NewSubscriber constructs a subscriber with a buffered delivery queue.
func NewSubscriber(id string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 1
	}
	return &Subscriber{
		ID:         id,
		Deliveries: make(chan Delivery, buffer),
	}
}

// Dropped returns how many deliveries were discarded because the queue was full.
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Subscriber) offer(d Delivery) bool {
	select {
	case s.Deliveries <- d:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}
