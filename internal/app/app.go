package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/broker"
	"github.com/vovakirdan/wirechat-relay/internal/broker/natsbus"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	transporthttp "github.com/vovakirdan/wirechat-relay/internal/transport/http"
)

// App wires together core, broker and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *broker.Hub
	bridge          *natsbus.Bridge
	relay           *core.Relay
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	hub := broker.NewHub(logger)

	// Without NATS the relay publishes straight into the local hub.
	var pub core.Publisher = hub
	var bridge *natsbus.Bridge
	if cfg.NATS.URL != "" {
		b, err := natsbus.Connect(natsbus.Config{
			URL:              cfg.NATS.URL,
			Subject:          cfg.NATS.Subject,
			PresenceInterval: cfg.NATS.PresenceInterval,
		}, hub, proto.MarshalPayload, logger)
		if err != nil {
			return nil, fmt.Errorf("init nats bridge: %w", err)
		}
		bridge = b
		pub = b
		logger.Info().Str("url", cfg.NATS.URL).Str("subject", cfg.NATS.Subject).Msg("nats bridge configured")
	}

	relay := core.NewRelay(pub, logger)

	// With NATS the user list spans every relay process on the bus.
	var roster core.Roster = relay.Registry
	if bridge != nil {
		roster = bridge
	}
	server := transporthttp.NewServer(relay, hub, roster, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		bridge:          bridge,
		relay:           relay,
		log:             logger,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	if err := a.startBus(); err != nil {
		a.cleanup()
		return err
	}

	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// startBus joins the NATS bus, announcing the users of this process.
func (a *App) startBus() error {
	if a.bridge == nil {
		return nil
	}
	if err := a.bridge.Start(a.relay.Registry); err != nil {
		return fmt.Errorf("start nats bridge: %w", err)
	}
	return nil
}

// cleanup closes the bus connection and other resources.
func (a *App) cleanup() {
	if a.bridge != nil {
		if err := a.bridge.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close nats bridge")
		} else {
			a.log.Info().Msg("nats bridge closed")
		}
	}
	a.log.Info().
		Int("online_users", a.relay.Registry.Len()).
		Int("open_connections", a.relay.Lifecycle.Connections()).
		Msg("relay stopped")
}
