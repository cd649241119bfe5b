package domain

import "time"

// DefaultHexColor is the fill color of every cell that has no stored row.
// Hexes are stored sparsely: a row exists only while the color differs from
// this value.
const DefaultHexColor = "lightgray"

// Room is an isolated, independently versioned map document.
type Room struct {
	ID            string  `gorm:"primaryKey;size:6"` // 6-character room code
	Name          string  `gorm:"size:191;not null"`
	OwnerUsername *string `gorm:"size:191;index"` // nil for anonymous rooms
	PasswordHash  string  `gorm:"size:191"`       // empty when the room is open
	CreatedAt     time.Time
	LastActivity  time.Time `gorm:"index"`
	Version       uint64    `gorm:"not null;default:1"` // bumped once per accepted mutation
}

func (Room) TableName() string { return "rooms" }

// HasPassword reports whether joining requires a password.
func (r *Room) HasPassword() bool { return r.PasswordHash != "" }

// OwnedBy reports whether the given authenticated username owns the room.
// Anonymous rooms have no owner and are owned by nobody.
func (r *Room) OwnedBy(username string) bool {
	return r.OwnerUsername != nil && username != "" && *r.OwnerUsername == username
}

// RoomSummary is the listing/status projection of a room. It is what the
// cache mirrors and what room listings are built from. UsersCount is
// ephemeral presence data owned by the cache, never persisted.
type RoomSummary struct {
	RoomID       string    `json:"room_id"`
	Name         string    `json:"name"`
	HasPassword  bool      `json:"has_password"`
	UsersCount   int       `json:"users_count"`
	Version      uint64    `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Summary projects the persistent room row into a RoomSummary.
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		RoomID:       r.ID,
		Name:         r.Name,
		HasPassword:  r.HasPassword(),
		Version:      r.Version,
		CreatedAt:    r.CreatedAt,
		LastActivity: r.LastActivity,
	}
}

// RoomState is a full point-in-time snapshot of one room: metadata plus
// every stored hex, line and unit.
type RoomState struct {
	Room    Room
	HexData map[string]HexInfo
	Lines   []Line
	Units   []Unit
}
