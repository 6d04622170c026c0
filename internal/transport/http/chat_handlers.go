package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// InfoMessage is returned by GET /chat/info.
const InfoMessage = "WireChat relay is running!"

// ChatHandlers serves read-only chat endpoints for page loads.
type ChatHandlers struct {
	roster core.Roster
	log    *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(roster core.Roster, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		roster: roster,
		log:    logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Users lists usernames that are currently online.
// GET /chat/users
func (h *ChatHandlers) Users(c *gin.Context) {
	users := h.roster.All()
	if users == nil {
		users = core.Snapshot{}
	}
	h.log.Debug().Int("count", len(users)).Msg("users listed")
	c.JSON(http.StatusOK, []string(users))
}

// Info reports that the relay is up.
// GET /chat/info
func (h *ChatHandlers) Info(c *gin.Context) {
	c.String(http.StatusOK, InfoMessage)
}
