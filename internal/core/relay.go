package core

import "github.com/rs/zerolog"

// Relay bundles the presence registry with the handlers that drive it.
type Relay struct {
	Registry  *Registry
	Lifecycle *Lifecycle
	Router    *Router
}

// NewRelay wires a registry, lifecycle handler and router around pub.
func NewRelay(pub Publisher, logger *zerolog.Logger) *Relay {
	registry := NewRegistry()
	lifecycle := NewLifecycle(registry, pub, logger)
	return &Relay{
		Registry:  registry,
		Lifecycle: lifecycle,
		Router:    NewRouter(registry, lifecycle, pub, logger),
	}
}
