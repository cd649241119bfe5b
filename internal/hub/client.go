package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client owns one WebSocket connection and pumps frames between it and the
// hub loop.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	session *Session
	send    chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn, session *Session) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		session: session,
		send:    make(chan []byte, 256),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) Session() *Session { return c.session }

// ReadPump pumps frames from the connection into the hub's message
// channel. It runs in its own goroutine and requests unregistration when
// the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		unregisterMsg := hubMessage{kind: msgUnregister, client: c}
		select {
		case c.hub.messageChan <- unregisterMsg:
		case <-time.After(1 * time.Second):
			logrus.WithField("session_id", c.session.ID).Warn("Timeout sending unregister message to hub channel")
		}
		c.conn.Close()
		logrus.WithField("session_id", c.session.ID).Info("Read pump exited, client unregistered")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithField("session_id", c.session.ID)
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			break
		}

		if messageType != websocket.TextMessage {
			logrus.WithField("session_id", c.session.ID).Debugf("Ignoring non-text message type: %d", messageType)
			continue
		}

		frameMsg := hubMessage{kind: msgFrame, client: c, rawData: message}
		select {
		case c.hub.messageChan <- frameMsg:
		default:
			logrus.WithField("session_id", c.session.ID).Warn("Hub message channel full, dropping client frame")
		}
	}
}

// WritePump pumps frames from the send channel to the connection and keeps
// it alive with periodic pings. It runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logrus.WithField("session_id", c.session.ID).Info("Write pump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the send channel during unregistration.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithField("session_id", c.session.ID).WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithField("session_id", c.session.ID).WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}
