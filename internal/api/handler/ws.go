package handler

import (
	"net/http"

	"grievance/backend/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict to the dashboard origins once they are configurable.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket authenticates the caller and subscribes the connection to
// the caller's notification topic.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	claims, err := h.Auth.ParseToken(bearerToken(c))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := realtime.NewWebSocketClient(claims.UserID, conn, h.Hub, h.logger)
	if !h.Hub.Register(client) {
		_ = conn.Close()
	}
}
