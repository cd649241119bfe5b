package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
)

// EditLogger hands accepted mutations to the background edit-log pipeline.
// Enqueue failures are logged and swallowed: the edit log is an audit trail,
// not part of the mutation's durability guarantee.
type EditLogger interface {
	EnqueueEdit(ctx context.Context, record domain.EditRecord) error
}

// UnitInput carries the client-supplied fields of a new unit. An empty ID
// means the server assigns one.
type UnitInput struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Color        string  `json:"color"`
	HexKey       string  `json:"hex_key"`
	IconPath     *string `json:"icon_path,omitempty"`
	TintColor    *string `json:"tint_color,omitempty"`
	Description  *string `json:"description,omitempty"`
	ParentUnitID *string `json:"parent_unit_id,omitempty"`
}

// MutationService is the persist half of the room mutation pipeline. Every
// method follows the same shape: apply the operation through the store in
// one transaction (which also bumps the room version), then mirror the
// confirmed result into the cache and enqueue an edit-log record. On a
// store failure nothing is mirrored and nothing is enqueued, so the cache
// can never run ahead of durable state.
type MutationService struct {
	roomRepo repository.RoomRepository
	cache    repository.RoomCache
	edits    EditLogger
}

func NewMutationService(roomRepo repository.RoomRepository, cache repository.RoomCache, edits EditLogger) *MutationService {
	if roomRepo == nil || cache == nil {
		panic("RoomRepository and RoomCache must be non-nil for MutationService")
	}
	return &MutationService{roomRepo: roomRepo, cache: cache, edits: edits}
}

// SetHexColor sets a cell's fill color. Setting the default color deletes
// the sparse row; unlike erase it never cascades to lines.
func (s *MutationService) SetHexColor(ctx context.Context, roomID, hexKey, fillColor string, actor Actor) (uint64, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "hex_key": hexKey, "actor": actor.Name()})
	if hexKey == "" || fillColor == "" {
		return 0, ErrInvalidAction
	}
	version, err := s.roomRepo.UpsertHex(ctx, roomID, hexKey, fillColor, actor.Name())
	if err != nil {
		return 0, s.mapStoreErr(logCtx, "set hex color", err)
	}
	s.finish(ctx, roomID, actor, "hex_update", map[string]string{"hex_key": hexKey, "fill_color": fillColor}, version)
	return version, nil
}

// EraseHex deletes the cell row and cascades to every line with an endpoint
// there. Units anchored on the cell are untouched. Returns the room's
// remaining lines.
func (s *MutationService) EraseHex(ctx context.Context, roomID, hexKey string, actor Actor) (uint64, []domain.Line, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "hex_key": hexKey, "actor": actor.Name()})
	if hexKey == "" {
		return 0, nil, ErrInvalidAction
	}
	version, remaining, err := s.roomRepo.EraseHex(ctx, roomID, hexKey)
	if err != nil {
		return 0, nil, s.mapStoreErr(logCtx, "erase hex", err)
	}
	s.finish(ctx, roomID, actor, "hex_erase", map[string]string{"hex_key": hexKey}, version)
	return version, remaining, nil
}

// AddLine appends an immutable line. The payload is opaque; the line id is
// taken from the payload's "id" field when present, server-assigned
// otherwise.
func (s *MutationService) AddLine(ctx context.Context, roomID string, payload json.RawMessage, actor Actor) (uint64, *domain.Line, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "actor": actor.Name()})
	if len(payload) == 0 {
		return 0, nil, ErrInvalidAction
	}
	var idProbe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &idProbe); err != nil {
		logCtx.WithError(err).Warn("Rejecting undecodable line payload")
		return 0, nil, ErrInvalidAction
	}
	lineID := idProbe.ID
	if lineID == "" {
		lineID = uuid.NewString()
	}

	line := &domain.Line{
		ID:        lineID,
		RoomID:    roomID,
		Payload:   []byte(payload),
		CreatedAt: time.Now().UTC(),
		CreatedBy: actor.Name(),
	}
	version, err := s.roomRepo.AddLine(ctx, line)
	if err != nil {
		return 0, nil, s.mapStoreErr(logCtx.WithField("line_id", lineID), "add line", err)
	}
	s.finish(ctx, roomID, actor, "line_add", map[string]string{"line_id": lineID}, version)
	return version, line, nil
}

// AddUnit appends a unit token, assigning an id when the client supplied
// none.
func (s *MutationService) AddUnit(ctx context.Context, roomID string, input UnitInput, actor Actor) (uint64, *domain.Unit, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "actor": actor.Name()})
	if input.Name == "" || input.HexKey == "" {
		return 0, nil, ErrInvalidAction
	}
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	unit := &domain.Unit{
		ID:           input.ID,
		RoomID:       roomID,
		Name:         input.Name,
		Color:        input.Color,
		HexKey:       input.HexKey,
		IconPath:     input.IconPath,
		TintColor:    input.TintColor,
		Description:  input.Description,
		ParentUnitID: input.ParentUnitID,
		CreatedAt:    time.Now().UTC(),
		CreatedBy:    actor.Name(),
	}
	version, err := s.roomRepo.AddUnit(ctx, unit)
	if err != nil {
		return 0, nil, s.mapStoreErr(logCtx.WithField("unit_id", unit.ID), "add unit", err)
	}
	s.finish(ctx, roomID, actor, "unit_add", map[string]string{"unit_id": unit.ID, "hex_key": unit.HexKey}, version)
	return version, unit, nil
}

// UpdateUnit applies the non-nil fields of the patch.
func (s *MutationService) UpdateUnit(ctx context.Context, roomID, unitID string, patch repository.UnitPatch, actor Actor) (uint64, *domain.Unit, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "unit_id": unitID, "actor": actor.Name()})
	version, unit, err := s.roomRepo.UpdateUnit(ctx, roomID, unitID, patch)
	if err != nil {
		return 0, nil, s.mapStoreErr(logCtx, "update unit", err)
	}
	s.finish(ctx, roomID, actor, "unit_update", map[string]string{"unit_id": unitID}, version)
	return version, unit, nil
}

// MoveUnit re-anchors a unit, dragging its direct children to the same
// destination in the same transaction. Returns every moved unit.
func (s *MutationService) MoveUnit(ctx context.Context, roomID, unitID, hexKey string, actor Actor) (uint64, []domain.Unit, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "unit_id": unitID, "hex_key": hexKey, "actor": actor.Name()})
	if hexKey == "" {
		return 0, nil, ErrInvalidAction
	}
	version, moved, err := s.roomRepo.MoveUnit(ctx, roomID, unitID, hexKey, actor.Name())
	if err != nil {
		return 0, nil, s.mapStoreErr(logCtx, "move unit", err)
	}
	s.finish(ctx, roomID, actor, "unit_move", map[string]string{"unit_id": unitID, "hex_key": hexKey}, version)
	return version, moved, nil
}

// ReparentUnit attaches a unit to a parent, or detaches it when parentID is
// nil. Attaching a unit to itself is rejected; deeper cycles are not
// checked.
func (s *MutationService) ReparentUnit(ctx context.Context, roomID, unitID string, parentID *string, actor Actor) (uint64, *domain.Unit, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "unit_id": unitID, "actor": actor.Name()})
	if parentID != nil && *parentID == unitID {
		return 0, nil, ErrInvalidAction
	}
	version, unit, err := s.roomRepo.ReparentUnit(ctx, roomID, unitID, parentID)
	if err != nil {
		return 0, nil, s.mapStoreErr(logCtx, "reparent unit", err)
	}
	s.finish(ctx, roomID, actor, "unit_reparent", map[string]string{"unit_id": unitID}, version)
	return version, unit, nil
}

// DeleteUnit removes a unit.
func (s *MutationService) DeleteUnit(ctx context.Context, roomID, unitID string, actor Actor) (uint64, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "unit_id": unitID, "actor": actor.Name()})
	version, err := s.roomRepo.DeleteUnit(ctx, roomID, unitID)
	if err != nil {
		return 0, s.mapStoreErr(logCtx, "delete unit", err)
	}
	s.finish(ctx, roomID, actor, "unit_delete", map[string]string{"unit_id": unitID}, version)
	return version, nil
}

// ReplaceState wipes and re-imports the room's entire hex/line/unit set.
// Only the room owner or an admin may do this.
func (s *MutationService) ReplaceState(ctx context.Context, roomID string, hexData map[string]domain.HexInfo, linePayloads []json.RawMessage, units []UnitInput, actor Actor) (uint64, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "actor": actor.Name()})

	room, err := s.roomRepo.FindRoom(ctx, roomID)
	if err != nil {
		return 0, s.mapStoreErr(logCtx, "load room for replace", err)
	}
	if !actor.IsAdmin && !room.OwnedBy(actor.Username) {
		logCtx.Warn("State replace rejected: not owner or admin")
		return 0, ErrForbidden
	}

	now := time.Now().UTC()
	lines := make([]domain.Line, 0, len(linePayloads))
	for i, payload := range linePayloads {
		var idProbe struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(payload, &idProbe); err != nil {
			logCtx.WithError(err).Warnf("Skipping undecodable line payload at index %d", i)
			continue
		}
		lineID := idProbe.ID
		if lineID == "" {
			lineID = uuid.NewString()
		}
		lines = append(lines, domain.Line{
			ID:        lineID,
			RoomID:    roomID,
			Payload:   []byte(payload),
			CreatedAt: now,
			CreatedBy: actor.Name(),
		})
	}

	unitRows := make([]domain.Unit, 0, len(units))
	for _, input := range units {
		if input.ID == "" {
			input.ID = uuid.NewString()
		}
		if input.Name == "" || input.HexKey == "" {
			continue
		}
		unitRows = append(unitRows, domain.Unit{
			ID:           input.ID,
			RoomID:       roomID,
			Name:         input.Name,
			Color:        input.Color,
			HexKey:       input.HexKey,
			IconPath:     input.IconPath,
			TintColor:    input.TintColor,
			Description:  input.Description,
			ParentUnitID: input.ParentUnitID,
			CreatedAt:    now,
			CreatedBy:    actor.Name(),
		})
	}

	version, err := s.roomRepo.ReplaceState(ctx, roomID, hexData, lines, unitRows, actor.Name())
	if err != nil {
		return 0, s.mapStoreErr(logCtx, "replace room state", err)
	}
	s.finish(ctx, roomID, actor, "replace_room_state", map[string]int{
		"hexes": len(hexData), "lines": len(lines), "units": len(unitRows),
	}, version)
	return version, nil
}

// finish mirrors the confirmed write into the cache and enqueues the edit
// record. Both are best-effort: the mutation already committed.
func (s *MutationService) finish(ctx context.Context, roomID string, actor Actor, eventType string, detail interface{}, version uint64) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "event": eventType, "version": version})

	room, err := s.roomRepo.FindRoom(ctx, roomID)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to reload room for cache sync")
	} else if err := s.cache.SyncSummary(ctx, room.Summary()); err != nil {
		logCtx.WithError(err).Warn("Failed to sync room cache after mutation")
	}

	if s.edits == nil {
		return
	}
	payload, err := json.Marshal(detail)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to marshal edit record payload")
		return
	}
	record := domain.EditRecord{
		RoomID:    roomID,
		Actor:     actor.Name(),
		EventType: eventType,
		Payload:   string(payload),
		Version:   version,
	}
	if err := s.edits.EnqueueEdit(ctx, record); err != nil {
		logCtx.WithError(err).Warn("Failed to enqueue edit record")
	}
}

// mapStoreErr translates repository errors into the service taxonomy.
// Anything that is not an expected condition is a storage failure and gets
// logged with full context here, once.
func (s *MutationService) mapStoreErr(logCtx *logrus.Entry, op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrRoomNotFound):
		return ErrRoomNotFound
	case errors.Is(err, repository.ErrUnitNotFound):
		return ErrUnitNotFound
	case errors.Is(err, repository.ErrDuplicateEntry):
		return ErrInvalidAction
	default:
		logCtx.WithError(err).Errorf("Storage failure during %s", op)
		return ErrStorage
	}
}
