package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Line is a connection between two cells. The payload is opaque to the
// server apart from its two endpoint cell keys; lines are immutable once
// created.
type Line struct {
	ID        string         `gorm:"primaryKey;size:191"`
	RoomID    string         `gorm:"index;size:6;not null"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
	CreatedBy string `gorm:"size:191"`
}

func (Line) TableName() string { return "lines" }

// lineEndpoints is the minimal slice of the payload the server needs to
// understand: the two cell keys the line connects.
type lineEndpoints struct {
	Start struct {
		Key string `json:"key"`
	} `json:"start"`
	End struct {
		Key string `json:"key"`
	} `json:"end"`
}

// Endpoints decodes the start and end cell keys from the opaque payload.
func (l *Line) Endpoints() (start, end string, err error) {
	var ep lineEndpoints
	if err := json.Unmarshal(l.Payload, &ep); err != nil {
		return "", "", fmt.Errorf("decode line %s endpoints: %w", l.ID, err)
	}
	return ep.Start.Key, ep.End.Key, nil
}

// Touches reports whether either endpoint of the line references the given
// cell key. Undecodable payloads touch nothing.
func (l *Line) Touches(hexKey string) bool {
	start, end, err := l.Endpoints()
	if err != nil {
		return false
	}
	return start == hexKey || end == hexKey
}
