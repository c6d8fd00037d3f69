package routes

import (
	"github.com/gin-gonic/gin"

	"snapfix-server/middleware"
	"snapfix-server/websocket"
)

// RegisterNotificationRoutes registers the realtime notification socket
func (h *Handler) RegisterNotificationRoutes(router *gin.RouterGroup) {
	router.GET("/ws", middleware.WebSocketAuthMiddleware(h.Auth.JWT()), h.serveNotifications)
}

func (h *Handler) serveNotifications(c *gin.Context) {
	websocket.ServeWebSocket(h.Hub, c.Writer, c.Request, principal(c))
}
