package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_OverlayToggleOrderIsPreserved(t *testing.T) {
	s := &Session{ID: "s1", IsAdmin: true}

	s.EnableOverlayRoom("ROOMA1")
	s.EnableOverlayRoom("ROOMB1")
	s.EnableOverlayRoom("ROOMC1")
	assert.Equal(t, []string{"ROOMA1", "ROOMB1", "ROOMC1"}, s.OverlayRooms())

	// Re-enabling keeps the original position.
	s.EnableOverlayRoom("ROOMA1")
	assert.Equal(t, []string{"ROOMA1", "ROOMB1", "ROOMC1"}, s.OverlayRooms())

	s.DisableOverlayRoom("ROOMB1")
	assert.Equal(t, []string{"ROOMA1", "ROOMC1"}, s.OverlayRooms())

	// Toggling a disabled room back on appends it at the end.
	s.EnableOverlayRoom("ROOMB1")
	assert.Equal(t, []string{"ROOMA1", "ROOMC1", "ROOMB1"}, s.OverlayRooms())
}

func TestSession_OverlayActive(t *testing.T) {
	s := &Session{ID: "s1", IsAdmin: true}
	assert.False(t, s.OverlayActive())

	s.EnableOverlayRoom("ROOMA1")
	assert.True(t, s.OverlayActive())
	assert.True(t, s.OverlayHas("ROOMA1"))
	assert.False(t, s.OverlayHas("ROOMB1"))

	s.DisableOverlayRoom("ROOMA1")
	assert.False(t, s.OverlayActive())
}

func TestSession_ActorFallsBackToDisplayName(t *testing.T) {
	anon := &Session{ID: "s1", DisplayName: "drifter"}
	assert.Equal(t, "drifter", anon.Actor().Name())

	authed := &Session{ID: "s2", Username: "cmdr", DisplayName: "The Commander"}
	assert.Equal(t, "cmdr", authed.Actor().Name())
}

func TestEncodeEvent_WrapsTypeAndData(t *testing.T) {
	frame := encodeEvent(EventHexUpdated, map[string]interface{}{
		"hex_key":      "3,2",
		"fill_color":   "blue",
		"room_version": uint64(9),
	})
	require.NotNil(t, frame)

	var decoded struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(frame, &decoded))
	assert.Equal(t, EventHexUpdated, decoded.Type)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(decoded.Data, &data))
	assert.Equal(t, "blue", data["fill_color"])
	assert.EqualValues(t, 9, data["room_version"])
}
