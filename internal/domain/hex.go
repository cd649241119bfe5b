package domain

import "time"

// Hex is one stored (non-default) cell of a room's grid, keyed by
// (room, cell key). Restoring a cell to DefaultHexColor deletes the row
// instead of storing it.
type Hex struct {
	RoomID    string `gorm:"primaryKey;size:6"`
	HexKey    string `gorm:"primaryKey;size:64"`
	FillColor string `gorm:"size:64;not null"`
	UpdatedAt time.Time
	UpdatedBy string `gorm:"size:191"`
}

func (Hex) TableName() string { return "hexes" }

// HexInfo is the wire shape of a cell inside a room state snapshot.
type HexInfo struct {
	FillColor string `json:"fillColor"`
}

// IsDefaultFill reports whether a fill color is the implicit default.
// Default cells are represented by the absence of a stored row.
func IsDefaultFill(color string) bool {
	return color == "" || color == DefaultHexColor
}
