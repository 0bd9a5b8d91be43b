// internal/handlers/websocket/websocket.go
package websocket

import (
	"net/http"

	"workdesk-service/internal/pkg/response"
	"workdesk-service/internal/pkg/token"
	sessionsvc "workdesk-service/internal/service/session"
	ws "workdesk-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub      *ws.Hub
	verifier *token.Verifier
	registry *sessionsvc.Registry
	logger   *zap.Logger
}

func NewWebSocketHandler(hub *ws.Hub, verifier *token.Verifier, registry *sessionsvc.Registry, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		verifier: verifier,
		registry: registry,
		logger:   logger,
	}
}

// HandleConnection upgrades the connection and subscribes it to the session
// owning the presented access token. The client then receives a snapshot on
// every session-state transition.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		response.Error(c, http.StatusUnauthorized, "missing token", nil)
		return
	}

	claims, err := h.verifier.VerifyAccessToken(raw)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
		return
	}

	ctrl, ok := h.registry.Get(c.Request.Context(), claims.SessionID)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "session not found or expired", nil)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, claims.SessionID)
	h.hub.Register(client)
	client.Start()

	// Push the current state immediately so the client does not wait for
	// the next transition.
	h.hub.BroadcastSnapshot(claims.SessionID, ctrl.Snapshot())
}
