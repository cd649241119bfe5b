package hub

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
	"github.com/olehtrofimiuk/MechMapOnline/internal/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Bulk state imports carry the
	// whole map, so this is generous.
	maxMessageSize = 512 * 1024
)

type msgKind int

const (
	msgRegister msgKind = iota
	msgUnregister
	msgFrame
)

// hubMessage is what flows over the hub's internal channel.
type hubMessage struct {
	kind    msgKind
	client  *Client
	rawData []byte
}

// Hub is the session registry and event loop. All session and room
// membership state lives here and is touched only from Run, so the maps
// need no locking. Frames are handled to completion one at a time: two
// mutations on the same room arriving back-to-back are serialized by the
// loop itself, and the persist-sync-broadcast sequence of one event always
// finishes before the next begins.
type Hub struct {
	messageChan chan hubMessage

	// sessions is the full registry, including clients not in any room.
	sessions map[*Client]*Session
	// rooms maps room id to the clients currently joined.
	rooms map[string]map[*Client]bool

	authService     *service.AuthService
	roomService     *service.RoomService
	mutationService *service.MutationService
	adminService    *service.AdminService
	cache           repository.RoomCache
}

func NewHub(authService *service.AuthService, roomService *service.RoomService, mutationService *service.MutationService, adminService *service.AdminService, cache repository.RoomCache) *Hub {
	if authService == nil || roomService == nil || mutationService == nil || adminService == nil || cache == nil {
		panic("all services and the cache must be non-nil for Hub")
	}
	return &Hub{
		messageChan:     make(chan hubMessage, 512),
		sessions:        make(map[*Client]*Session),
		rooms:           make(map[string]map[*Client]bool),
		authService:     authService,
		roomService:     roomService,
		mutationService: mutationService,
		adminService:    adminService,
		cache:           cache,
	}
}

// Run is the hub's event loop. It should run in its own goroutine.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.kind {
		case msgRegister:
			h.registerClient(msg.client)
		case msgUnregister:
			h.unregisterClient(msg.client)
		case msgFrame:
			// Inline, not in a goroutine: frame handling is the
			// serialization point for same-room mutation ordering.
			h.dispatchFrame(msg.client, msg.rawData)
		default:
			log.Warnf("Received unknown hub message kind: %d", msg.kind)
		}
	}
	log.Info("Hub is shutting down...")
}

// QueueMessage puts a message on the hub's channel without blocking.
// Returns false when the channel is full and the message was dropped.
func (h *Hub) QueueMessage(msg hubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("kind", msg.kind).Warn("Hub message channel full, dropping message")
		return false
	}
}

// Register hands a freshly upgraded client to the hub loop.
func (h *Hub) Register(client *Client) bool {
	return h.QueueMessage(hubMessage{kind: msgRegister, client: client})
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	h.sessions[client] = client.session
	logrus.WithField("session_id", client.session.ID).Info("Client registered to hub")
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to unregister a nil client")
		return
	}
	session, ok := h.sessions[client]
	if !ok {
		logrus.Warn("Client not found in session registry during unregister")
		return
	}
	logCtx := logrus.WithField("session_id", session.ID)

	if session.RoomID != "" {
		h.departRoom(client, session)
	}
	delete(h.sessions, client)

	// The hub loop is the only sender, and the client is out of every map
	// by now, so the close is safe. Pending frames stay readable; WritePump
	// drains them and exits on the closed channel.
	close(client.send)
	logCtx.Info("Client unregistered from hub")
}

// dispatchFrame decodes one inbound frame and routes it to its handler.
func (h *Hub) dispatchFrame(client *Client, rawData []byte) {
	session, ok := h.sessions[client]
	if !ok {
		logrus.Warn("Dropping frame from unregistered client")
		return
	}

	var env inboundEnvelope
	if err := json.Unmarshal(rawData, &env); err != nil {
		logrus.WithError(err).WithField("session_id", session.ID).Warn("Dropping undecodable frame")
		h.sendError(client, EventRoomError, "Malformed message")
		return
	}

	switch env.Type {
	case EventAuthenticate:
		h.handleAuthenticate(client, session, env.Data)
	case EventCreateRoom:
		h.handleCreateRoom(client, session, env.Data)
	case EventJoinRoom:
		h.handleJoinRoom(client, session, env.Data)
	case EventLeaveRoom:
		h.handleLeaveRoom(client, session)
	case EventDeleteRoom:
		h.handleDeleteRoom(client, session)
	case EventGetRooms:
		h.handleGetRooms(client, session)
	case EventCursorUpdate:
		h.handleCursorUpdate(client, session, env.Data)
	case EventHexUpdate:
		h.handleHexUpdate(client, session, env.Data)
	case EventHexErase:
		h.handleHexErase(client, session, env.Data)
	case EventLineAdd:
		h.handleLineAdd(client, session, env.Data)
	case EventUnitAdd:
		h.handleUnitAdd(client, session, env.Data)
	case EventUnitUpdate:
		h.handleUnitUpdate(client, session, env.Data)
	case EventUnitMove:
		h.handleUnitMove(client, session, env.Data)
	case EventUnitReparent:
		h.handleUnitReparent(client, session, env.Data)
	case EventUnitDelete:
		h.handleUnitDelete(client, session, env.Data)
	case EventReplaceRoomState:
		h.handleReplaceRoomState(client, session, env.Data)
	case EventAdminToggleRoom:
		h.handleAdminToggleRoom(client, session, env.Data)
	default:
		logrus.WithFields(logrus.Fields{"session_id": session.ID, "event": env.Type}).Warn("Unknown event type")
		h.sendError(client, EventRoomError, "Unknown event type")
	}
}

// sendTo puts one frame on a client's send queue without blocking. A full
// queue means the client is too slow; the frame is dropped and the write
// pump's ping cycle will eventually detect a dead peer.
func (h *Hub) sendTo(client *Client, eventType string, data interface{}) {
	frame := encodeEvent(eventType, data)
	if frame == nil {
		return
	}
	select {
	case client.send <- frame:
	default:
		logrus.WithFields(logrus.Fields{
			"session_id": client.session.ID,
			"event":      eventType,
		}).Warn("Client send channel full, dropping frame")
	}
}

// sendError reports an expected failure to the originating session only.
func (h *Hub) sendError(client *Client, eventType, message string) {
	h.sendTo(client, eventType, map[string]string{"message": message})
}

// broadcastToRoom fans a frame out to every client in the room, optionally
// excluding one (normally the sender).
func (h *Hub) broadcastToRoom(roomID string, eventType string, data interface{}, exclude *Client) {
	roomClients, ok := h.rooms[roomID]
	if !ok || len(roomClients) == 0 {
		return
	}
	frame := encodeEvent(eventType, data)
	if frame == nil {
		return
	}

	sent := 0
	for client := range roomClients {
		if client == exclude {
			continue
		}
		select {
		case client.send <- frame:
			sent++
		default:
			logrus.WithFields(logrus.Fields{
				"room_id":    roomID,
				"session_id": client.session.ID,
			}).Warn("Client send channel full during broadcast, skipping")
		}
	}
	logrus.WithFields(logrus.Fields{
		"room_id":    roomID,
		"event":      eventType,
		"recipients": sent,
	}).Debug("Broadcast complete")
}

// participantCount returns the number of live connections in a room.
func (h *Hub) participantCount(roomID string) int {
	return len(h.rooms[roomID])
}

// reportServiceError maps a service error onto the failure event the
// sender should receive. Expected conditions get their named event;
// anything else is reported generically.
func (h *Hub) reportServiceError(client *Client, err error) {
	switch {
	case errors.Is(err, service.ErrAdminReadOnly):
		h.sendError(client, EventAdminError, "Admin overlay is read-only")
	case errors.Is(err, service.ErrRoomNotFound):
		h.sendError(client, EventRoomError, "Room not found")
	case errors.Is(err, service.ErrUnitNotFound):
		h.sendError(client, EventRoomError, "Unit not found")
	case errors.Is(err, service.ErrInvalidPassword):
		h.sendError(client, EventRoomError, "Invalid password")
	case errors.Is(err, service.ErrForbidden):
		h.sendError(client, EventRoomError, "Permission denied")
	case errors.Is(err, service.ErrRoomNotEmpty):
		h.sendError(client, EventRoomError, "Other users are still in the room")
	case errors.Is(err, service.ErrInvalidAction):
		h.sendError(client, EventRoomError, "Invalid request")
	default:
		h.sendError(client, EventRoomError, "Operation failed, please try again")
	}
}
