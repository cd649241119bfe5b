package domain

import "time"

// EditRecord is one entry of the append-only edit log: which actor performed
// which mutation on which room, at which resulting room version. Records are
// written by a background worker, never on the hot path.
type EditRecord struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    string    `gorm:"index;size:6;not null"`
	Actor     string    `gorm:"size:191"`
	EventType string    `gorm:"size:50;not null"`
	Payload   string    `gorm:"type:text;not null"` // JSON of the accepted mutation
	Version   uint64    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (EditRecord) TableName() string { return "edit_log" }
