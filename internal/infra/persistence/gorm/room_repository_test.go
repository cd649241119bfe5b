package gormpersistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
)

func testLine(id, startKey, endKey string) domain.Line {
	return domain.Line{
		ID:      id,
		RoomID:  "ROOM01",
		Payload: []byte(`{"id":"` + id + `","start":{"key":"` + startKey + `"},"end":{"key":"` + endKey + `"}}`),
	}
}

func TestEraseCascade_SelectsLinesTouchingTheCell(t *testing.T) {
	lines := []domain.Line{
		testLine("l1", "5,5", "1,1"), // start at the erased cell
		testLine("l2", "0,0", "5,5"), // end at the erased cell
		testLine("l3", "0,0", "1,1"), // neither endpoint
	}

	doomed, remaining := eraseCascade(lines, "5,5")

	assert.ElementsMatch(t, []string{"l1", "l2"}, doomed)
	require.Len(t, remaining, 1)
	assert.Equal(t, "l3", remaining[0].ID)
}

func TestEraseCascade_UndecodablePayloadSurvives(t *testing.T) {
	lines := []domain.Line{
		{ID: "broken", RoomID: "ROOM01", Payload: []byte(`not json`)},
		testLine("l1", "5,5", "1,1"),
	}

	doomed, remaining := eraseCascade(lines, "5,5")

	assert.Equal(t, []string{"l1"}, doomed)
	require.Len(t, remaining, 1)
	assert.Equal(t, "broken", remaining[0].ID)
}

func TestEraseCascade_NoLines(t *testing.T) {
	doomed, remaining := eraseCascade(nil, "5,5")

	assert.Empty(t, doomed)
	assert.NotNil(t, remaining, "callers broadcast the surviving set, so it is never nil")
	assert.Empty(t, remaining)
}
