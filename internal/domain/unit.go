package domain

import "time"

// Unit is a movable token anchored on a cell. Units survive cell erasure
// and persist until explicitly deleted. A unit may reference another unit
// as its parent; moving the parent drags its direct children along (one
// level, not recursive).
type Unit struct {
	ID           string  `gorm:"primaryKey;size:191"`
	RoomID       string  `gorm:"index;size:6;not null"`
	Name         string  `gorm:"size:191;not null"`
	Color        string  `gorm:"size:64;not null"`
	HexKey       string  `gorm:"size:64;not null;index"`
	IconPath     *string `gorm:"size:255"`
	TintColor    *string `gorm:"size:64"`
	Description  *string `gorm:"type:text"`
	ParentUnitID *string `gorm:"size:191;index"`
	CreatedAt    time.Time
	CreatedBy    string `gorm:"size:191"`
	MovedAt      *time.Time
	MovedBy      *string `gorm:"size:191"`
}

func (Unit) TableName() string { return "units" }
