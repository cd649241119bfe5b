package repository

import (
	"context"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
)

// UnitPatch carries the optional fields of a unit update. Nil fields are
// left untouched.
type UnitPatch struct {
	Name        *string
	Color       *string
	IconPath    *string
	TintColor   *string
	Description *string
}

// RoomRepository is the durable store for rooms and their map entities.
//
// Every mutating method runs inside a single transaction that also bumps the
// room's version counter and last-activity timestamp, and returns the new
// version. Callers never observe partial writes: the transaction commits
// atomically or rolls back entirely. A mutation against a room that does not
// exist returns ErrRoomNotFound.
type RoomRepository interface {
	// CreateRoom inserts a new room row. Returns ErrDuplicateEntry when the
	// room code is already taken.
	CreateRoom(ctx context.Context, room *domain.Room) error

	// FindRoom returns the room metadata row.
	FindRoom(ctx context.Context, roomID string) (*domain.Room, error)

	// RoomExists reports whether a room code is taken. Used for collision
	// checks during code generation; checks the store, not the cache.
	RoomExists(ctx context.Context, roomID string) (bool, error)

	// DeleteRoom removes a room and cascade-deletes its hexes, lines and
	// units in one transaction.
	DeleteRoom(ctx context.Context, roomID string) error

	// ListRooms returns all room rows ordered by last activity, newest first.
	ListRooms(ctx context.Context) ([]domain.Room, error)

	// GetState returns the full snapshot of one room.
	GetState(ctx context.Context, roomID string) (*domain.RoomState, error)

	// UpsertHex sets a cell's fill color. Setting DefaultHexColor deletes
	// the row instead (sparse storage); it never cascades.
	UpsertHex(ctx context.Context, roomID, hexKey, fillColor, updatedBy string) (uint64, error)

	// EraseHex deletes the cell row and every line with an endpoint at that
	// cell. Units anchored on the cell are left untouched. Returns the lines
	// remaining in the room after the cascade.
	EraseHex(ctx context.Context, roomID, hexKey string) (uint64, []domain.Line, error)

	// AddLine appends an immutable line.
	AddLine(ctx context.Context, line *domain.Line) (uint64, error)

	// AddUnit appends a unit token.
	AddUnit(ctx context.Context, unit *domain.Unit) (uint64, error)

	// UpdateUnit applies the non-nil fields of the patch and returns the
	// updated unit.
	UpdateUnit(ctx context.Context, roomID, unitID string, patch UnitPatch) (uint64, *domain.Unit, error)

	// MoveUnit re-anchors a unit and every unit whose parent it is (one
	// level, not recursive) to the destination cell. Returns all moved
	// units, the directly moved one first.
	MoveUnit(ctx context.Context, roomID, unitID, hexKey, movedBy string) (uint64, []domain.Unit, error)

	// ReparentUnit sets or clears a unit's parent reference.
	ReparentUnit(ctx context.Context, roomID, unitID string, parentID *string) (uint64, *domain.Unit, error)

	// DeleteUnit removes a unit. Children pointing at it keep their parent
	// reference dangling; they are not deleted.
	DeleteUnit(ctx context.Context, roomID, unitID string) (uint64, error)

	// ReplaceState wipes and re-inserts the room's entire hex/line/unit set
	// in one transaction (bulk import). Hexes at the default color are
	// skipped per the sparse invariant.
	ReplaceState(ctx context.Context, roomID string, hexData map[string]domain.HexInfo, lines []domain.Line, units []domain.Unit, actor string) (uint64, error)

	// TouchActivity refreshes last-activity without bumping the version.
	// Used for membership changes, which are not map mutations.
	TouchActivity(ctx context.Context, roomID string) error
}
