package hub

import (
	"github.com/olehtrofimiuk/MechMapOnline/internal/service"
)

// Session is the registry entry for one live connection: its
// authentication state, display name, current room, and admin overlay
// toggles. Sessions are created on connect, destroyed on disconnect, and
// mutated only by the hub loop, so no locking is needed.
type Session struct {
	ID            string
	Authenticated bool
	Username      string // resolved persisted identity, empty for anonymous
	DisplayName   string // what other participants see
	IsAdmin       bool
	RoomID        string // current room, empty when not joined
	OwnsRoom      bool   // true when this session created its current room

	// Admin overlay state: the rooms this viewer has enabled, in the order
	// they were toggled on. The order is the merge tiebreaker, so it is
	// preserved across recomputes. counts mirrors the last aggregate pushed.
	overlayRooms  []string
	overlayCounts map[string]service.RoomContentCounts
}

// Actor derives the identity the service layer attributes mutations to.
func (s *Session) Actor() service.Actor {
	return service.Actor{
		Username:    s.Username,
		DisplayName: s.DisplayName,
		IsAdmin:     s.IsAdmin,
	}
}

// OverlayActive reports whether this session is in admin overlay mode.
// Overlay sessions are read-only viewers and may never mutate.
func (s *Session) OverlayActive() bool {
	return len(s.overlayRooms) > 0
}

// OverlayRooms returns the enabled rooms in toggle-on order.
func (s *Session) OverlayRooms() []string {
	return s.overlayRooms
}

// OverlayHas reports whether the viewer has the given room enabled.
func (s *Session) OverlayHas(roomID string) bool {
	for _, id := range s.overlayRooms {
		if id == roomID {
			return true
		}
	}
	return false
}

// EnableOverlayRoom appends the room to the enable order; re-enabling an
// already enabled room keeps its original position.
func (s *Session) EnableOverlayRoom(roomID string) {
	if s.OverlayHas(roomID) {
		return
	}
	s.overlayRooms = append(s.overlayRooms, roomID)
}

// DisableOverlayRoom removes the room from the enable order.
func (s *Session) DisableOverlayRoom(roomID string) {
	for i, id := range s.overlayRooms {
		if id == roomID {
			s.overlayRooms = append(s.overlayRooms[:i], s.overlayRooms[i+1:]...)
			break
		}
	}
	if s.overlayCounts != nil {
		delete(s.overlayCounts, roomID)
	}
}

// RememberOverlayCounts caches the per-room content counts of the last
// aggregate pushed to this viewer.
func (s *Session) RememberOverlayCounts(counts map[string]service.RoomContentCounts) {
	s.overlayCounts = counts
}
