package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository/mocks"
	"github.com/olehtrofimiuk/MechMapOnline/internal/service"
)

func roomState(roomID string, version uint64, hexes map[string]domain.HexInfo, lines []domain.Line, units []domain.Unit) *domain.RoomState {
	return &domain.RoomState{
		Room:    domain.Room{ID: roomID, Name: "Room " + roomID, Version: version},
		HexData: hexes,
		Lines:   lines,
		Units:   units,
	}
}

func TestAdminService_Aggregate_FirstEnabledRoomWinsPrimaryColor(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	svc := service.NewAdminService(mockRepo)
	ctx := context.Background()

	stateA := roomState("ROOMA1", 4, map[string]domain.HexInfo{"5,5": {FillColor: "red"}}, nil, nil)
	stateB := roomState("ROOMB1", 7, map[string]domain.HexInfo{"5,5": {FillColor: "blue"}}, nil, nil)
	mockRepo.On("GetState", ctx, "ROOMA1").Return(stateA, nil).Once()
	mockRepo.On("GetState", ctx, "ROOMB1").Return(stateB, nil).Once()

	view, err := svc.Aggregate(ctx, []string{"ROOMA1", "ROOMB1"})

	require.NoError(t, err)
	cell, ok := view.Hexes["5,5"]
	require.True(t, ok)
	assert.Equal(t, "red", cell.FillColor, "the first enabled room's color is primary")
	require.Len(t, cell.Contributors, 2)
	assert.Equal(t, "ROOMA1", cell.Contributors[0].RoomID)
	assert.Equal(t, "red", cell.Contributors[0].FillColor)
	assert.Equal(t, "ROOMB1", cell.Contributors[1].RoomID)
	assert.Equal(t, "blue", cell.Contributors[1].FillColor)

	assert.Equal(t, uint64(4), view.Versions["ROOMA1"])
	assert.Equal(t, uint64(7), view.Versions["ROOMB1"])
}

func TestAdminService_Aggregate_EnableOrderIsTheTiebreaker(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	svc := service.NewAdminService(mockRepo)
	ctx := context.Background()

	stateA := roomState("ROOMA1", 1, map[string]domain.HexInfo{"5,5": {FillColor: "red"}}, nil, nil)
	stateB := roomState("ROOMB1", 1, map[string]domain.HexInfo{"5,5": {FillColor: "blue"}}, nil, nil)
	// Same rooms, opposite enable order.
	mockRepo.On("GetState", ctx, "ROOMB1").Return(stateB, nil).Once()
	mockRepo.On("GetState", ctx, "ROOMA1").Return(stateA, nil).Once()

	view, err := svc.Aggregate(ctx, []string{"ROOMB1", "ROOMA1"})

	require.NoError(t, err)
	assert.Equal(t, "blue", view.Hexes["5,5"].FillColor)
}

func TestAdminService_Aggregate_ReidentifiesUnitsAndParents(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	svc := service.NewAdminService(mockRepo)
	ctx := context.Background()

	parent := "u1"
	units := []domain.Unit{
		{ID: "u1", RoomID: "ROOMA1", Name: "Lancer", HexKey: "2,2"},
		{ID: "u2", RoomID: "ROOMA1", Name: "Scout", HexKey: "2,3", ParentUnitID: &parent},
	}
	mockRepo.On("GetState", ctx, "ROOMA1").Return(roomState("ROOMA1", 1, nil, nil, units), nil).Once()

	view, err := svc.Aggregate(ctx, []string{"ROOMA1"})

	require.NoError(t, err)
	require.Len(t, view.Units, 2)
	assert.Equal(t, "ROOMA1_u1", view.Units[0].ID)
	assert.Equal(t, "ROOMA1", view.Units[0].SourceRoom)
	assert.True(t, view.Units[0].ReadOnly)
	require.NotNil(t, view.Units[1].ParentUnitID)
	assert.Equal(t, "ROOMA1_u1", *view.Units[1].ParentUnitID, "parent references are re-identified too")
}

func TestAdminService_Aggregate_ReidentifiesLinePayloads(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	svc := service.NewAdminService(mockRepo)
	ctx := context.Background()

	lines := []domain.Line{
		{ID: "l1", RoomID: "ROOMA1", Payload: []byte(`{"id":"l1","start":{"key":"0,0"},"end":{"key":"1,1"},"color":"black"}`)},
	}
	mockRepo.On("GetState", ctx, "ROOMA1").Return(roomState("ROOMA1", 1, nil, lines, nil), nil).Once()

	view, err := svc.Aggregate(ctx, []string{"ROOMA1"})

	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(view.Lines[0], &decoded))
	assert.Equal(t, "ROOMA1_l1", decoded["id"])
	assert.Equal(t, "ROOMA1", decoded["source_room"])
	assert.Equal(t, "black", decoded["color"], "untouched payload fields survive")
}

func TestAdminService_Aggregate_SkipsVanishedRooms(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	svc := service.NewAdminService(mockRepo)
	ctx := context.Background()

	stateB := roomState("ROOMB1", 2, map[string]domain.HexInfo{"1,1": {FillColor: "green"}}, nil, nil)
	mockRepo.On("GetState", ctx, "GONE99").Return(nil, repository.ErrRoomNotFound).Once()
	mockRepo.On("GetState", ctx, "ROOMB1").Return(stateB, nil).Once()

	view, err := svc.Aggregate(ctx, []string{"GONE99", "ROOMB1"})

	require.NoError(t, err)
	assert.NotContains(t, view.RoomCounts, "GONE99")
	assert.Equal(t, "green", view.Hexes["1,1"].FillColor)
}

func TestAdminService_Aggregate_CountsPerRoom(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	svc := service.NewAdminService(mockRepo)
	ctx := context.Background()

	state := roomState("ROOMA1", 3,
		map[string]domain.HexInfo{"1,1": {FillColor: "red"}, "2,2": {FillColor: "blue"}},
		[]domain.Line{{ID: "l1", Payload: []byte(`{"id":"l1","start":{"key":"1,1"},"end":{"key":"2,2"}}`)}},
		[]domain.Unit{{ID: "u1", Name: "Lancer", HexKey: "1,1"}})
	mockRepo.On("GetState", ctx, "ROOMA1").Return(state, nil).Once()

	view, err := svc.Aggregate(ctx, []string{"ROOMA1"})

	require.NoError(t, err)
	counts := view.RoomCounts["ROOMA1"]
	assert.Equal(t, 2, counts.Hexes)
	assert.Equal(t, 1, counts.Lines)
	assert.Equal(t, 1, counts.Units)
}
