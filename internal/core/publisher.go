package core

// Publisher hands payloads to the delivery substrate. Publish must not block
// on delivery; failures are the publisher's to log.
type Publisher interface {
	Publish(channel string, payload any)
}

// Roster reports who is online. Registry is the single-process roster.
type Roster interface {
	All() Snapshot
}
