package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"backoffice-chat/internal/identity"
	"backoffice-chat/internal/services"
	"backoffice-chat/internal/transport/httpdto"
	"backoffice-chat/pkg/logger"
)

// Handler upgrades authenticated requests to WebSocket connections and
// hands them to the hub.
type Handler struct {
	resolver *identity.Resolver
	hub      *Hub
	chat     *services.ChatService
	log      *logger.Logger
}

func NewHandler(resolver *identity.Resolver, hub *Hub, chat *services.ChatService, log *logger.Logger) *Handler {
	return &Handler{resolver: resolver, hub: hub, chat: chat, log: log}
}

// Connect authenticates via the token query parameter; browsers cannot
// set headers on WebSocket upgrades.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	a, err := h.resolver.ResolveActor(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorf("websocket upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn, a, h.chat, h.log)
	h.hub.register <- client
}
