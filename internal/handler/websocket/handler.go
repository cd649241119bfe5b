package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/olehtrofimiuk/MechMapOnline/internal/hub"
)

// Handler upgrades HTTP requests to WebSocket connections and hands the
// resulting clients to the hub. Connections start unauthenticated and
// roomless; the client authenticates and joins rooms over the socket
// itself.
type Handler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

func NewHandler(h *hub.Hub) *Handler {
	if h == nil {
		panic("Hub cannot be nil for websocket Handler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// TODO: restrict to the deployed frontend origin once there is one.
			return true
		},
	}

	return &Handler{upgrader: upgrader, hub: h}
}

// HandleConnection serves GET /ws.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logrus.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}

	session := &hub.Session{ID: uuid.NewString()}
	client := hub.NewClient(h.hub, conn, session)
	logCtx := logrus.WithField("session_id", session.ID)

	if !h.hub.Register(client) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		conn.Close()
		return
	}

	client.Run()
	logCtx.Info("WS Handler: Connection upgraded and client started")
}
