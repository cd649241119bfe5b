package hub

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/olehtrofimiuk/MechMapOnline/internal/service"
)

func (h *Hub) handleAuthenticate(client *Client, session *Session, data json.RawMessage) {
	var payload authenticatePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Token == "" {
		h.sendError(client, EventAuthError, "Missing token")
		return
	}

	user, err := h.authService.Resolve(context.Background(), payload.Token)
	if err != nil {
		logrus.WithField("session_id", session.ID).Debug("Token resolution failed")
		h.sendError(client, EventAuthError, "Invalid or expired token")
		return
	}

	session.Authenticated = true
	session.Username = user.Username
	session.IsAdmin = user.IsAdmin
	if session.DisplayName == "" {
		session.DisplayName = user.Username
	}

	logrus.WithFields(logrus.Fields{
		"session_id": session.ID,
		"username":   user.Username,
		"is_admin":   user.IsAdmin,
	}).Info("Session authenticated")
	h.sendTo(client, EventAuthSuccess, map[string]interface{}{
		"username": user.Username,
		"is_admin": user.IsAdmin,
	})
}

func (h *Hub) handleCreateRoom(client *Client, session *Session, data json.RawMessage) {
	if session.OverlayActive() {
		h.reportServiceError(client, service.ErrAdminReadOnly)
		return
	}
	var payload createRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(client, EventRoomError, "Malformed message")
		return
	}
	if name := strings.TrimSpace(payload.UserName); name != "" {
		session.DisplayName = name
	}
	if session.RoomID != "" {
		h.departRoom(client, session)
	}

	state, err := h.roomService.CreateRoom(context.Background(), payload.RoomName, session.Actor(), payload.Password)
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	h.enterRoom(client, session, state.Room.ID)
	session.OwnsRoom = true

	h.sendTo(client, EventRoomCreated, map[string]interface{}{
		"room_id":  state.Room.ID,
		"state":    toStateDTO(state),
		"is_owner": true,
	})
}

func (h *Hub) handleJoinRoom(client *Client, session *Session, data json.RawMessage) {
	if session.OverlayActive() {
		h.reportServiceError(client, service.ErrAdminReadOnly)
		return
	}
	var payload joinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		h.sendError(client, EventRoomError, "Missing room id")
		return
	}
	if name := strings.TrimSpace(payload.UserName); name != "" {
		session.DisplayName = name
	}
	if session.RoomID != "" {
		h.departRoom(client, session)
	}

	state, err := h.roomService.JoinRoom(context.Background(), payload.RoomID, payload.Password)
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	h.enterRoom(client, session, state.Room.ID)
	session.OwnsRoom = state.Room.OwnedBy(session.Username) && session.Username != ""

	h.sendTo(client, EventRoomJoined, map[string]interface{}{
		"state":    toStateDTO(state),
		"is_owner": session.OwnsRoom,
	})
	h.broadcastToRoom(state.Room.ID, EventUserJoined, map[string]interface{}{
		"user_name":   session.Actor().Name(),
		"users_count": h.participantCount(state.Room.ID),
	}, client)
}

func (h *Hub) handleLeaveRoom(client *Client, session *Session) {
	if session.RoomID == "" {
		h.sendTo(client, EventRoomLeft, map[string]bool{"success": true})
		return
	}
	h.departRoom(client, session)
	h.sendTo(client, EventRoomLeft, map[string]bool{"success": true})
}

func (h *Hub) handleDeleteRoom(client *Client, session *Session) {
	roomID := session.RoomID
	if roomID == "" {
		h.sendError(client, EventRoomError, "No active room")
		return
	}

	err := h.roomService.DeleteRoom(context.Background(), roomID, session.Actor(), h.participantCount(roomID))
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	// Force everyone out, sender included. The broadcast goes to all
	// participants so clients can return to the lobby.
	h.broadcastToRoom(roomID, EventRoomDeleted, map[string]string{"room_id": roomID}, nil)
	if roomClients, ok := h.rooms[roomID]; ok {
		for member := range roomClients {
			memberSession := member.session
			memberSession.RoomID = ""
			memberSession.OwnsRoom = false
			if err := h.cache.RemoveSession(context.Background(), roomID, memberSession.ID); err != nil {
				logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to drop session from presence set")
			}
		}
		delete(h.rooms, roomID)
	}
}

func (h *Hub) handleGetRooms(client *Client, session *Session) {
	summaries, err := h.roomService.ListRooms(context.Background())
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	now := time.Now().UTC()
	listing := make([]map[string]interface{}, 0, len(summaries))
	for _, s := range summaries {
		listing = append(listing, map[string]interface{}{
			"room_id":              s.RoomID,
			"name":                 s.Name,
			"has_password":         s.HasPassword,
			"users_count":          h.participantCount(s.RoomID),
			"version":              s.Version,
			"created_at":           s.CreatedAt,
			"hours_since_activity": now.Sub(s.LastActivity).Hours(),
		})
	}
	h.sendTo(client, EventRoomsList, listing)
}

// handleCursorUpdate relays a participant's cursor position to the rest of
// the room. Ephemeral: nothing is persisted and no version is bumped.
func (h *Hub) handleCursorUpdate(client *Client, session *Session, data json.RawMessage) {
	if session.RoomID == "" {
		return
	}
	var payload cursorUpdatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	h.broadcastToRoom(session.RoomID, EventCursorMoved, map[string]interface{}{
		"user_name": session.Actor().Name(),
		"hex_key":   payload.HexKey,
		"x":         payload.X,
		"y":         payload.Y,
	}, client)
}

// enterRoom adds the client to the room's channel and presence set.
func (h *Hub) enterRoom(client *Client, session *Session, roomID string) {
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	session.RoomID = roomID
	if err := h.cache.AddSession(context.Background(), roomID, session.ID); err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to add session to presence set")
	}
}

// departRoom removes the client from its current room, notifies the
// remaining participants, and clears membership state. Best-effort: the
// departure itself never fails.
func (h *Hub) departRoom(client *Client, session *Session) {
	roomID := session.RoomID
	if roomID == "" {
		return
	}
	if roomClients, ok := h.rooms[roomID]; ok {
		delete(roomClients, client)
		if len(roomClients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	session.RoomID = ""
	session.OwnsRoom = false

	if err := h.cache.RemoveSession(context.Background(), roomID, session.ID); err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to drop session from presence set")
	}
	h.roomService.TouchActivity(context.Background(), roomID)

	h.broadcastToRoom(roomID, EventUserLeft, map[string]interface{}{
		"user_name":   session.Actor().Name(),
		"users_count": h.participantCount(roomID),
	}, client)
}
