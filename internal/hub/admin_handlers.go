package hub

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

func (h *Hub) handleAdminToggleRoom(client *Client, session *Session, data json.RawMessage) {
	if !session.IsAdmin {
		h.sendError(client, EventAdminError, "Admin privileges required")
		return
	}
	var payload adminTogglePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		h.sendError(client, EventAdminError, "Missing room id")
		return
	}

	if payload.Enabled {
		session.EnableOverlayRoom(payload.RoomID)
	} else {
		session.DisableOverlayRoom(payload.RoomID)
	}

	view, err := h.adminService.Aggregate(context.Background(), session.OverlayRooms())
	if err != nil {
		h.reportServiceError(client, err)
		return
	}
	if payload.Enabled {
		if _, ok := view.RoomCounts[payload.RoomID]; !ok {
			// Enabled a room the store no longer has.
			session.DisableOverlayRoom(payload.RoomID)
			h.sendError(client, EventAdminError, "Room not found")
			return
		}
	}
	session.RememberOverlayCounts(view.RoomCounts)

	logrus.WithFields(logrus.Fields{
		"session_id": session.ID,
		"room_id":    payload.RoomID,
		"enabled":    payload.Enabled,
		"rooms":      len(session.OverlayRooms()),
	}).Info("Admin overlay toggled")
	h.sendTo(client, EventAdminOverlay, view)
}

// notifyAdminViewers recomputes and pushes the overlay of every admin
// viewer that has the mutated room enabled. Viewer-scoped on purpose: each
// viewer may have a different enabled set, so no aggregate is shared.
func (h *Hub) notifyAdminViewers(roomID string) {
	for client, session := range h.sessions {
		if !session.IsAdmin || !session.OverlayHas(roomID) {
			continue
		}
		view, err := h.adminService.Aggregate(context.Background(), session.OverlayRooms())
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"session_id": session.ID,
				"room_id":    roomID,
			}).Warn("Failed to recompute admin overlay")
			continue
		}
		session.RememberOverlayCounts(view.RoomCounts)
		h.sendTo(client, EventAdminOverlay, view)
	}
}
