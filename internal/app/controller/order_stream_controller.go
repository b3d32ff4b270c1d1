package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	apperrors "github.com/opticplace/opticplace-backend/internal/errors"
	"github.com/opticplace/opticplace-backend/internal/middleware"
	"github.com/opticplace/opticplace-backend/internal/websocket"
)

// OrderStreamController pushes order events to admin dashboards
type OrderStreamController struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
}

func NewOrderStreamController(hub *websocket.Hub, allowedOrigins []string) *OrderStreamController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &OrderStreamController{
		hub: hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser clients send no origin
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// Stream
// GET /api/v1/admin/orders/stream
func (ctrl *OrderStreamController) Stream(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	client := websocket.NewClient(ctrl.hub, &websocket.Conn{Conn: conn}, userID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
