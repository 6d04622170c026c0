package broker

// Topic groups subscribers of the same channel.
type Topic struct {
	Name string
	subs map[*Subscriber]struct{}
}

// NewTopic constructs a topic with no subscribers.
func NewTopic(name string) *Topic {
	return &Topic{
		Name: name,
		subs: make(map[*Subscriber]struct{}),
	}
}

// Add inserts a subscriber. Returns true if newly added.
func (t *Topic) Add(s *Subscriber) bool {
	if _, exists := t.subs[s]; exists {
		return false
	}
	t.subs[s] = struct{}{}
	return true
}

// Remove deletes a subscriber. Returns true if removed.
func (t *Topic) Remove(s *Subscriber) bool {
	if _, exists := t.subs[s]; !exists {
		return false
	}
	delete(t.subs, s)
	return true
}

// Broadcast offers d to every subscriber and returns how many accepted it.
func (t *Topic) Broadcast(d Delivery) int {
	delivered := 0
	for s := range t.subs {
		// Drop if slow consumer.
		if s.offer(d) {
			delivered++
		}
	}
	return delivered
}

// Len returns the number of subscribers.
func (t *Topic) Len() int {
	return len(t.subs)
}

// Empty returns true if nobody is subscribed.
func (t *Topic) Empty() bool {
	return len(t.subs) == 0
}
