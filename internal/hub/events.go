package hub

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
	"github.com/olehtrofimiuk/MechMapOnline/internal/service"
)

// Inbound event types.
const (
	EventAuthenticate     = "authenticate"
	EventCreateRoom       = "create_room"
	EventJoinRoom         = "join_room"
	EventLeaveRoom        = "leave_room"
	EventDeleteRoom       = "delete_room"
	EventGetRooms         = "get_rooms"
	EventHexUpdate        = "hex_update"
	EventHexErase         = "hex_erase"
	EventLineAdd          = "line_add"
	EventUnitAdd          = "unit_add"
	EventUnitUpdate       = "unit_update"
	EventUnitMove         = "unit_move"
	EventUnitReparent     = "unit_reparent"
	EventUnitDelete       = "unit_delete"
	EventReplaceRoomState = "replace_room_state"
	EventCursorUpdate     = "cursor_update"
	EventAdminToggleRoom  = "admin_toggle_room"
)

// Outbound event types.
const (
	EventAuthSuccess        = "auth_success"
	EventAuthError          = "auth_error"
	EventRoomCreated        = "room_created"
	EventRoomJoined         = "room_joined"
	EventUserJoined         = "user_joined"
	EventRoomLeft           = "room_left"
	EventUserLeft           = "user_left"
	EventRoomDeleted        = "room_deleted"
	EventRoomError          = "room_error"
	EventHexUpdated         = "hex_updated"
	EventHexErased          = "hex_erased"
	EventLineAdded          = "line_added"
	EventUnitAdded          = "unit_added"
	EventUnitUpdated        = "unit_updated"
	EventUnitMoved          = "unit_moved"
	EventUnitReparented     = "unit_reparented"
	EventUnitDeleted        = "unit_deleted"
	EventRoomStateReplaced  = "room_state_replaced"
	EventRoomsList          = "rooms_list"
	EventCursorMoved        = "cursor_moved"
	EventAdminOverlay       = "admin_room_overlay_updated"
	EventAdminError         = "admin_error"
)

// inboundEnvelope is the frame shape clients send: a type tag and an
// event-specific data object.
type inboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// encodeEvent serializes an outbound frame. Marshal failures are a
// programming error in the payload builders; the frame is dropped and
// logged.
func encodeEvent(eventType string, data interface{}) []byte {
	frame := struct {
		Type string      `json:"type"`
		Data interface{} `json:"data,omitempty"`
	}{Type: eventType, Data: data}
	bytes, err := json.Marshal(frame)
	if err != nil {
		logrus.WithError(err).WithField("event", eventType).Error("Failed to marshal outbound event")
		return nil
	}
	return bytes
}

// --- inbound payloads ---

type authenticatePayload struct {
	Token string `json:"token"`
}

type createRoomPayload struct {
	RoomName string `json:"room_name"`
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

type joinRoomPayload struct {
	RoomID   string `json:"room_id"`
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

type hexUpdatePayload struct {
	HexKey    string `json:"hex_key"`
	FillColor string `json:"fill_color"`
}

type hexErasePayload struct {
	HexKey string `json:"hex_key"`
}

type lineAddPayload struct {
	Line json.RawMessage `json:"line"`
}

type unitUpdatePayload struct {
	UnitID      string  `json:"unit_id"`
	Name        *string `json:"name"`
	Color       *string `json:"color"`
	IconPath    *string `json:"icon_path"`
	TintColor   *string `json:"tint_color"`
	Description *string `json:"description"`
}

type unitMovePayload struct {
	UnitID string `json:"unit_id"`
	HexKey string `json:"hex_key"`
}

type unitReparentPayload struct {
	UnitID       string  `json:"unit_id"`
	ParentUnitID *string `json:"parent_unit_id"`
}

type unitDeletePayload struct {
	UnitID string `json:"unit_id"`
}

type replaceStatePayload struct {
	HexData map[string]domain.HexInfo `json:"hex_data"`
	Lines   []json.RawMessage         `json:"lines"`
	Units   []service.UnitInput       `json:"units"`
}

type cursorUpdatePayload struct {
	HexKey string  `json:"hex_key"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type adminTogglePayload struct {
	RoomID  string `json:"room_id"`
	Enabled bool   `json:"enabled"`
}

// --- outbound wire shapes ---

// unitDTO is the wire shape of a unit.
type unitDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Color        string  `json:"color"`
	HexKey       string  `json:"hex_key"`
	IconPath     *string `json:"icon_path,omitempty"`
	TintColor    *string `json:"tint_color,omitempty"`
	Description  *string `json:"description,omitempty"`
	ParentUnitID *string `json:"parent_unit_id,omitempty"`
}

func toUnitDTO(unit domain.Unit) unitDTO {
	return unitDTO{
		ID:           unit.ID,
		Name:         unit.Name,
		Color:        unit.Color,
		HexKey:       unit.HexKey,
		IconPath:     unit.IconPath,
		TintColor:    unit.TintColor,
		Description:  unit.Description,
		ParentUnitID: unit.ParentUnitID,
	}
}

func toUnitDTOs(units []domain.Unit) []unitDTO {
	out := make([]unitDTO, 0, len(units))
	for _, u := range units {
		out = append(out, toUnitDTO(u))
	}
	return out
}

func linePayloads(lines []domain.Line) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(lines))
	for _, l := range lines {
		out = append(out, json.RawMessage(l.Payload))
	}
	return out
}

// stateDTO is the full room snapshot sent on create/join.
type stateDTO struct {
	RoomID  string                    `json:"room_id"`
	Name    string                    `json:"name"`
	Version uint64                    `json:"room_version"`
	HexData map[string]domain.HexInfo `json:"hex_data"`
	Lines   []json.RawMessage         `json:"lines"`
	Units   []unitDTO                 `json:"units"`
}

func toStateDTO(state *domain.RoomState) stateDTO {
	return stateDTO{
		RoomID:  state.Room.ID,
		Name:    state.Room.Name,
		Version: state.Room.Version,
		HexData: state.HexData,
		Lines:   linePayloads(state.Lines),
		Units:   toUnitDTOs(state.Units),
	}
}
