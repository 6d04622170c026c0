package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/broker"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// NewServer builds the HTTP server: REST endpoints on gin plus the WebSocket
// relay. /ws sits on the outer mux because gin's writer refuses to hijack a
// connection once the upgrade status is written. roster answers GET
// /chat/users; nil means the relay's own registry.
func NewServer(relay *core.Relay, hub *broker.Hub, roster core.Roster, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	if roster == nil {
		roster = relay.Registry
	}

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	chat := NewChatHandlers(roster, logger)

	router.GET("/health", healthHandler)
	router.GET("/chat/info", chat.Info)
	router.GET("/chat/users", chat.Users)

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(relay, hub, cfg, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
