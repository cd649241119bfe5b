package hub

import (
	"context"
	"encoding/json"

	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
	"github.com/olehtrofimiuk/MechMapOnline/internal/service"
)

// authorizeMutation is the entry gate of the mutation pipeline. An admin
// overlay session may never mutate; everyone else needs an active room.
// Returns the acting room id, or false after reporting the failure to the
// sender alone.
func (h *Hub) authorizeMutation(client *Client, session *Session) (string, bool) {
	if session.OverlayActive() {
		h.reportServiceError(client, service.ErrAdminReadOnly)
		return "", false
	}
	if session.RoomID == "" {
		h.sendError(client, EventRoomError, "No active room")
		return "", false
	}
	return session.RoomID, true
}

func (h *Hub) handleHexUpdate(client *Client, session *Session, data json.RawMessage) {
	roomID, ok := h.authorizeMutation(client, session)
	if !ok {
		return
	}
	var payload hexUpdatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(client, EventRoomError, "Malformed message")
		return
	}

	version, err := h.mutationService.SetHexColor(context.Background(), roomID, payload.HexKey, payload.FillColor, session.Actor())
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	h.broadcastToRoom(roomID, EventHexUpdated, map[string]interface{}{
		"hex_key":      payload.HexKey,
		"fill_color":   payload.FillColor,
		"user_name":    session.Actor().Name(),
		"room_version": version,
	}, client)
	h.notifyAdminViewers(roomID)
}

func (h *Hub) handleHexErase(client *Client, session *Session, data json.RawMessage) {
	roomID, ok := h.authorizeMutation(client, session)
	if !ok {
		return
	}
	var payload hexErasePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(client, EventRoomError, "Malformed message")
		return
	}

	version, remaining, err := h.mutationService.EraseHex(context.Background(), roomID, payload.HexKey, session.Actor())
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	// The erase cascade deletes lines server-side; clients get the surviving
	// set so they can reconcile without a full refetch.
	h.broadcastToRoom(roomID, EventHexErased, map[string]interface{}{
		"hex_key":      payload.HexKey,
		"lines":        linePayloads(remaining),
		"user_name":    session.Actor().Name(),
		"room_version": version,
	}, client)
	h.notifyAdminViewers(roomID)
}

func (h *Hub) handleLineAdd(client *Client, session *Session, data json.RawMessage) {
	roomID, ok := h.authorizeMutation(client, session)
	if !ok {
		return
	}
	var payload lineAddPayload
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Line) == 0 {
		h.sendError(client, EventRoomError, "Malformed message")
		return
	}

	version, line, err := h.mutationService.AddLine(context.Background(), roomID, payload.Line, session.Actor())
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	h.broadcastToRoom(roomID, EventLineAdded, map[string]interface{}{
		"line":         json.RawMessage(line.Payload),
		"line_id":      line.ID,
		"user_name":    session.Actor().Name(),
		"room_version": version,
	}, client)
	h.notifyAdminViewers(roomID)
}

func (h *Hub) handleUnitAdd(client *Client, session *Session, data json.RawMessage) {
	roomID, ok := h.authorizeMutation(client, session)
	if !ok {
		return
	}
	var input service.UnitInput
	if err := json.Unmarshal(data, &input); err != nil {
		h.sendError(client, EventRoomError, "Malformed message")
		return
	}

	version, unit, err := h.mutationService.AddUnit(context.Background(), roomID, input, session.Actor())
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	// Echoed to the sender too, unlike every other mutation: the unit id
	// may be server-assigned and the sender needs it.
	h.broadcastToRoom(roomID, EventUnitAdded, map[string]interface{}{
		"unit":         toUnitDTO(*unit),
		"user_name":    session.Actor().Name(),
		"room_version": version,
	}, nil)
	h.notifyAdminViewers(roomID)
}

func (h *Hub) handleUnitUpdate(client *Client, session *Session, data json.RawMessage) {
	roomID, ok := h.authorizeMutation(client, session)
	if !ok {
		return
	}
	var payload unitUpdatePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UnitID == "" {
		h.sendError(client, EventRoomError, "Malformed message")
		return
	}

	patch := repository.UnitPatch{
		Name:        payload.Name,
		Color:       payload.Color,
		IconPath:    payload.IconPath,
		TintColor:   payload.TintColor,
		Description: payload.Description,
	}
	version, unit, err := h.mutationService.UpdateUnit(context.Background(), roomID, payload.UnitID, patch, session.Actor())
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	h.broadcastToRoom(roomID, EventUnitUpdated, map[string]interface{}{
		"unit":         toUnitDTO(*unit),
		"user_name":    session.Actor().Name(),
		"room_version": version,
	}, client)
	h.notifyAdminViewers(roomID)
}

func (h *Hub) handleUnitMove(client *Client, session *Session, data json.RawMessage) {
	roomID, ok := h.authorizeMutation(client, session)
	if !ok {
		return
	}
	var payload unitMovePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UnitID == "" {
		h.sendError(client, EventRoomError, "Malformed message")
		return
	}

	version, moved, err := h.mutationService.MoveUnit(context.Background(), roomID, payload.UnitID, payload.HexKey, session.Actor())
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	// moved carries the unit plus any direct children dragged along.
	h.broadcastToRoom(roomID, EventUnitMoved, map[string]interface{}{
		"units":        toUnitDTOs(moved),
		"hex_key":      payload.HexKey,
		"user_name":    session.Actor().Name(),
		"room_version": version,
	}, client)
	h.notifyAdminViewers(roomID)
}

func (h *Hub) handleUnitReparent(client *Client, session *Session, data json.RawMessage) {
	roomID, ok := h.authorizeMutation(client, session)
	if !ok {
		return
	}
	var payload unitReparentPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UnitID == "" {
		h.sendError(client, EventRoomError, "Malformed message")
		return
	}

	version, unit, err := h.mutationService.ReparentUnit(context.Background(), roomID, payload.UnitID, payload.ParentUnitID, session.Actor())
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	h.broadcastToRoom(roomID, EventUnitReparented, map[string]interface{}{
		"unit":         toUnitDTO(*unit),
		"user_name":    session.Actor().Name(),
		"room_version": version,
	}, client)
	h.notifyAdminViewers(roomID)
}

func (h *Hub) handleUnitDelete(client *Client, session *Session, data json.RawMessage) {
	roomID, ok := h.authorizeMutation(client, session)
	if !ok {
		return
	}
	var payload unitDeletePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UnitID == "" {
		h.sendError(client, EventRoomError, "Malformed message")
		return
	}

	version, err := h.mutationService.DeleteUnit(context.Background(), roomID, payload.UnitID, session.Actor())
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	h.broadcastToRoom(roomID, EventUnitDeleted, map[string]interface{}{
		"unit_id":      payload.UnitID,
		"user_name":    session.Actor().Name(),
		"room_version": version,
	}, client)
	h.notifyAdminViewers(roomID)
}

func (h *Hub) handleReplaceRoomState(client *Client, session *Session, data json.RawMessage) {
	roomID, ok := h.authorizeMutation(client, session)
	if !ok {
		return
	}
	var payload replaceStatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(client, EventRoomError, "Malformed message")
		return
	}

	version, err := h.mutationService.ReplaceState(context.Background(), roomID, payload.HexData, payload.Lines, payload.Units, session.Actor())
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	// A replace invalidates everything a client holds, so fetch the
	// authoritative snapshot once and fan it out to everyone, sender
	// included.
	state, err := h.roomService.GetState(context.Background(), roomID)
	if err != nil {
		h.reportServiceError(client, err)
		return
	}
	h.broadcastToRoom(roomID, EventRoomStateReplaced, map[string]interface{}{
		"state":        toStateDTO(state),
		"user_name":    session.Actor().Name(),
		"room_version": version,
	}, nil)
	h.notifyAdminViewers(roomID)
}
