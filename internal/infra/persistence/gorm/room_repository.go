package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
)

// GormRoomRepository implements repository.RoomRepository on MySQL.
//
// Every mutating method wraps its statements and the room version bump in
// one transaction, so the version a caller receives is the version the write
// committed under.
type GormRoomRepository struct {
	db *gorm.DB
}

func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

// bumpRoom increments the room's version and refreshes last-activity inside
// the caller's transaction, returning the new version. Zero rows affected
// means the room does not exist.
func bumpRoom(tx *gorm.DB, roomID string) (uint64, error) {
	res := tx.Model(&domain.Room{}).Where("id = ?", roomID).Updates(map[string]interface{}{
		"version":       gorm.Expr("version + 1"),
		"last_activity": time.Now().UTC(),
	})
	if res.Error != nil {
		return 0, fmt.Errorf("gorm: bump room %s: %w", roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, repository.ErrRoomNotFound
	}
	var version uint64
	if err := tx.Model(&domain.Room{}).Where("id = ?", roomID).Pluck("version", &version).Error; err != nil {
		return 0, fmt.Errorf("gorm: read room %s version: %w", roomID, err)
	}
	return version, nil
}

func (r *GormRoomRepository) CreateRoom(ctx context.Context, room *domain.Room) error {
	err := r.db.WithContext(ctx).Create(room).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create room %s: %w", room.ID, err)
	}
	return nil
}

func (r *GormRoomRepository) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, "id = ?", roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room %s: %w", roomID, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) RoomExists(ctx context.Context, roomID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Where("id = ?", roomID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count room %s: %w", roomID, err)
	}
	return count > 0, nil
}

func (r *GormRoomRepository) DeleteRoom(ctx context.Context, roomID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Room{}, "id = ?", roomID)
		if res.Error != nil {
			return fmt.Errorf("gorm: delete room %s: %w", roomID, res.Error)
		}
		if res.RowsAffected == 0 {
			return repository.ErrRoomNotFound
		}
		for _, child := range []interface{}{&domain.Hex{}, &domain.Line{}, &domain.Unit{}} {
			if err := tx.Where("room_id = ?", roomID).Delete(child).Error; err != nil {
				return fmt.Errorf("gorm: cascade delete for room %s: %w", roomID, err)
			}
		}
		return nil
	})
}

func (r *GormRoomRepository) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).Order("last_activity DESC").Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list rooms: %w", err)
	}
	return rooms, nil
}

func (r *GormRoomRepository) GetState(ctx context.Context, roomID string) (*domain.RoomState, error) {
	room, err := r.FindRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	state := &domain.RoomState{Room: *room, HexData: make(map[string]domain.HexInfo)}

	var hexes []domain.Hex
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Find(&hexes).Error; err != nil {
		return nil, fmt.Errorf("gorm: load hexes for room %s: %w", roomID, err)
	}
	for _, h := range hexes {
		state.HexData[h.HexKey] = domain.HexInfo{FillColor: h.FillColor}
	}

	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("created_at").Find(&state.Lines).Error; err != nil {
		return nil, fmt.Errorf("gorm: load lines for room %s: %w", roomID, err)
	}
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("created_at").Find(&state.Units).Error; err != nil {
		return nil, fmt.Errorf("gorm: load units for room %s: %w", roomID, err)
	}
	return state, nil
}

func (r *GormRoomRepository) UpsertHex(ctx context.Context, roomID, hexKey, fillColor, updatedBy string) (uint64, error) {
	var version uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Sparse storage: the default color is represented by the absence of
		// a row. No line cascade here; that belongs to erase only.
		if domain.IsDefaultFill(fillColor) {
			if err := tx.Where("room_id = ? AND hex_key = ?", roomID, hexKey).Delete(&domain.Hex{}).Error; err != nil {
				return fmt.Errorf("gorm: delete default hex %s/%s: %w", roomID, hexKey, err)
			}
		} else {
			hex := domain.Hex{
				RoomID:    roomID,
				HexKey:    hexKey,
				FillColor: fillColor,
				UpdatedAt: time.Now().UTC(),
				UpdatedBy: updatedBy,
			}
			if err := tx.Save(&hex).Error; err != nil {
				return fmt.Errorf("gorm: upsert hex %s/%s: %w", roomID, hexKey, err)
			}
		}
		var err error
		version, err = bumpRoom(tx, roomID)
		return err
	})
	return version, err
}

func (r *GormRoomRepository) EraseHex(ctx context.Context, roomID, hexKey string) (uint64, []domain.Line, error) {
	var version uint64
	var remaining []domain.Line
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ? AND hex_key = ?", roomID, hexKey).Delete(&domain.Hex{}).Error; err != nil {
			return fmt.Errorf("gorm: erase hex %s/%s: %w", roomID, hexKey, err)
		}

		// Line endpoints live inside the opaque payload, so the cascade
		// decodes each of the room's lines rather than filtering in SQL.
		var lines []domain.Line
		if err := tx.Where("room_id = ?", roomID).Order("created_at").Find(&lines).Error; err != nil {
			return fmt.Errorf("gorm: load lines for erase %s/%s: %w", roomID, hexKey, err)
		}
		doomed, kept := eraseCascade(lines, hexKey)
		remaining = kept
		if len(doomed) > 0 {
			if err := tx.Where("id IN ?", doomed).Delete(&domain.Line{}).Error; err != nil {
				return fmt.Errorf("gorm: cascade delete %d lines at %s/%s: %w", len(doomed), roomID, hexKey, err)
			}
		}

		var err error
		version, err = bumpRoom(tx, roomID)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return version, remaining, nil
}

// eraseCascade partitions a room's lines around an erased cell: lines with
// an endpoint at the cell are doomed, everything else survives. Lines whose
// payload cannot be decoded survive; the server never guesses at endpoints.
func eraseCascade(lines []domain.Line, hexKey string) (doomed []string, remaining []domain.Line) {
	remaining = make([]domain.Line, 0, len(lines))
	for _, line := range lines {
		if line.Touches(hexKey) {
			doomed = append(doomed, line.ID)
		} else {
			remaining = append(remaining, line)
		}
	}
	return doomed, remaining
}

func (r *GormRoomRepository) AddLine(ctx context.Context, line *domain.Line) (uint64, error) {
	var version uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(line).Error; err != nil {
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
				return repository.ErrDuplicateEntry
			}
			return fmt.Errorf("gorm: add line %s: %w", line.ID, err)
		}
		var err error
		version, err = bumpRoom(tx, line.RoomID)
		return err
	})
	return version, err
}

func (r *GormRoomRepository) AddUnit(ctx context.Context, unit *domain.Unit) (uint64, error) {
	var version uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(unit).Error; err != nil {
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
				return repository.ErrDuplicateEntry
			}
			return fmt.Errorf("gorm: add unit %s: %w", unit.ID, err)
		}
		var err error
		version, err = bumpRoom(tx, unit.RoomID)
		return err
	})
	return version, err
}

func findUnit(tx *gorm.DB, roomID, unitID string) (*domain.Unit, error) {
	var unit domain.Unit
	err := tx.First(&unit, "room_id = ? AND id = ?", roomID, unitID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUnitNotFound
		}
		return nil, fmt.Errorf("gorm: find unit %s/%s: %w", roomID, unitID, err)
	}
	return &unit, nil
}

func (r *GormRoomRepository) UpdateUnit(ctx context.Context, roomID, unitID string, patch repository.UnitPatch) (uint64, *domain.Unit, error) {
	var version uint64
	var updated *domain.Unit
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unit, err := findUnit(tx, roomID, unitID)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			unit.Name = *patch.Name
		}
		if patch.Color != nil {
			unit.Color = *patch.Color
		}
		if patch.IconPath != nil {
			unit.IconPath = patch.IconPath
		}
		if patch.TintColor != nil {
			unit.TintColor = patch.TintColor
		}
		if patch.Description != nil {
			unit.Description = patch.Description
		}
		if err := tx.Save(unit).Error; err != nil {
			return fmt.Errorf("gorm: update unit %s/%s: %w", roomID, unitID, err)
		}
		updated = unit
		version, err = bumpRoom(tx, roomID)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return version, updated, nil
}

func (r *GormRoomRepository) MoveUnit(ctx context.Context, roomID, unitID, hexKey, movedBy string) (uint64, []domain.Unit, error) {
	var version uint64
	var moved []domain.Unit
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unit, err := findUnit(tx, roomID, unitID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		stamp := map[string]interface{}{"hex_key": hexKey, "moved_at": now, "moved_by": movedBy}

		if err := tx.Model(&domain.Unit{}).Where("room_id = ? AND id = ?", roomID, unitID).Updates(stamp).Error; err != nil {
			return fmt.Errorf("gorm: move unit %s/%s: %w", roomID, unitID, err)
		}
		// One-level cascade: direct children follow, grandchildren stay.
		if err := tx.Model(&domain.Unit{}).Where("room_id = ? AND parent_unit_id = ?", roomID, unitID).Updates(stamp).Error; err != nil {
			return fmt.Errorf("gorm: move children of %s/%s: %w", roomID, unitID, err)
		}

		moved = moved[:0]
		unit.HexKey = hexKey
		unit.MovedAt = &now
		unit.MovedBy = &movedBy
		moved = append(moved, *unit)

		var children []domain.Unit
		if err := tx.Where("room_id = ? AND parent_unit_id = ?", roomID, unitID).Find(&children).Error; err != nil {
			return fmt.Errorf("gorm: load children of %s/%s: %w", roomID, unitID, err)
		}
		moved = append(moved, children...)

		version, err = bumpRoom(tx, roomID)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return version, moved, nil
}

func (r *GormRoomRepository) ReparentUnit(ctx context.Context, roomID, unitID string, parentID *string) (uint64, *domain.Unit, error) {
	var version uint64
	var updated *domain.Unit
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unit, err := findUnit(tx, roomID, unitID)
		if err != nil {
			return err
		}
		if parentID != nil {
			if _, err := findUnit(tx, roomID, *parentID); err != nil {
				return err
			}
		}
		if err := tx.Model(&domain.Unit{}).Where("room_id = ? AND id = ?", roomID, unitID).
			Update("parent_unit_id", parentID).Error; err != nil {
			return fmt.Errorf("gorm: reparent unit %s/%s: %w", roomID, unitID, err)
		}
		unit.ParentUnitID = parentID
		updated = unit
		version, err = bumpRoom(tx, roomID)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return version, updated, nil
}

func (r *GormRoomRepository) DeleteUnit(ctx context.Context, roomID, unitID string) (uint64, error) {
	var version uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("room_id = ? AND id = ?", roomID, unitID).Delete(&domain.Unit{})
		if res.Error != nil {
			return fmt.Errorf("gorm: delete unit %s/%s: %w", roomID, unitID, res.Error)
		}
		if res.RowsAffected == 0 {
			return repository.ErrUnitNotFound
		}
		var err error
		version, err = bumpRoom(tx, roomID)
		return err
	})
	return version, err
}

func (r *GormRoomRepository) ReplaceState(ctx context.Context, roomID string, hexData map[string]domain.HexInfo, lines []domain.Line, units []domain.Unit, actor string) (uint64, error) {
	var version uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{&domain.Hex{}, &domain.Line{}, &domain.Unit{}} {
			if err := tx.Where("room_id = ?", roomID).Delete(child).Error; err != nil {
				return fmt.Errorf("gorm: clear room %s for replace: %w", roomID, err)
			}
		}

		now := time.Now().UTC()
		for hexKey, info := range hexData {
			if domain.IsDefaultFill(info.FillColor) {
				continue // sparse: default cells are not stored
			}
			hex := domain.Hex{RoomID: roomID, HexKey: hexKey, FillColor: info.FillColor, UpdatedAt: now, UpdatedBy: actor}
			if err := tx.Create(&hex).Error; err != nil {
				return fmt.Errorf("gorm: replace hex %s/%s: %w", roomID, hexKey, err)
			}
		}
		for i := range lines {
			lines[i].RoomID = roomID
			lines[i].CreatedAt = now
			if lines[i].CreatedBy == "" {
				lines[i].CreatedBy = actor
			}
			if err := tx.Create(&lines[i]).Error; err != nil {
				return fmt.Errorf("gorm: replace line %s: %w", lines[i].ID, err)
			}
		}
		for i := range units {
			units[i].RoomID = roomID
			units[i].CreatedAt = now
			if units[i].CreatedBy == "" {
				units[i].CreatedBy = actor
			}
			if err := tx.Create(&units[i]).Error; err != nil {
				return fmt.Errorf("gorm: replace unit %s: %w", units[i].ID, err)
			}
		}

		var err error
		version, err = bumpRoom(tx, roomID)
		return err
	})
	return version, err
}

func (r *GormRoomRepository) TouchActivity(ctx context.Context, roomID string) error {
	res := r.db.WithContext(ctx).Model(&domain.Room{}).Where("id = ?", roomID).
		Update("last_activity", time.Now().UTC())
	if res.Error != nil {
		return fmt.Errorf("gorm: touch room %s: %w", roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrRoomNotFound
	}
	return nil
}
