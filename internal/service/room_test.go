package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository/mocks"
	"github.com/olehtrofimiuk/MechMapOnline/internal/service"
)

func newRoomService(t *testing.T) (*service.RoomService, *mocks.RoomRepository, *mocks.RoomCache) {
	t.Helper()
	mockRepo := new(mocks.RoomRepository)
	mockCache := new(mocks.RoomCache)
	return service.NewRoomService(mockRepo, mockCache), mockRepo, mockCache
}

func TestRoomService_CreateRoom_RetriesOnCodeCollision(t *testing.T) {
	svc, mockRepo, mockCache := newRoomService(t)
	ctx := context.Background()

	// First generated code collides against the store, the second is free.
	mockRepo.On("RoomExists", ctx, mock.AnythingOfType("string")).Return(true, nil).Once()
	mockRepo.On("RoomExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	mockRepo.On("CreateRoom", ctx, mock.MatchedBy(func(room *domain.Room) bool {
		assert.Len(t, room.ID, 6)
		assert.Equal(t, uint64(1), room.Version)
		return true
	})).Return(nil).Once()
	mockCache.On("SyncSummary", ctx, mock.Anything).Return(nil).Once()

	state, err := svc.CreateRoom(ctx, "War Room", service.Actor{DisplayName: "Anon"}, "")

	assert.NoError(t, err)
	require.NotNil(t, state)
	assert.Nil(t, state.Room.OwnerUsername, "anonymous creator must not own the room")
	mockRepo.AssertExpectations(t)
}

func TestRoomService_CreateRoom_AuthenticatedCreatorOwnsRoom(t *testing.T) {
	svc, mockRepo, mockCache := newRoomService(t)
	ctx := context.Background()

	mockRepo.On("RoomExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	mockRepo.On("CreateRoom", ctx, mock.Anything).Return(nil).Once()
	mockCache.On("SyncSummary", ctx, mock.Anything).Return(nil).Once()

	state, err := svc.CreateRoom(ctx, "  ", service.Actor{Username: "cmdr"}, "hunter2")

	assert.NoError(t, err)
	require.NotNil(t, state)
	require.NotNil(t, state.Room.OwnerUsername)
	assert.Equal(t, "cmdr", *state.Room.OwnerUsername)
	assert.Equal(t, "Unnamed Room", state.Room.Name, "blank names fall back to a default")
	assert.True(t, state.Room.HasPassword())
}

func TestRoomService_JoinRoom_InvalidPassword(t *testing.T) {
	svc, mockRepo, _ := newRoomService(t)
	ctx := context.Background()

	hash, err := service.HashPassword("secret")
	require.NoError(t, err)
	room := &domain.Room{ID: "ABC123", Name: "Locked", PasswordHash: hash, Version: 3}
	mockRepo.On("FindRoom", ctx, "ABC123").Return(room, nil).Once()

	_, err = svc.JoinRoom(ctx, "ABC123", "wrong")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidPassword))
	mockRepo.AssertNotCalled(t, "GetState", mock.Anything, mock.Anything)
}

func TestRoomService_JoinRoom_UnknownRoom(t *testing.T) {
	svc, mockRepo, _ := newRoomService(t)
	ctx := context.Background()

	mockRepo.On("FindRoom", ctx, "NOPE42").Return(nil, repository.ErrRoomNotFound).Once()

	_, err := svc.JoinRoom(ctx, "NOPE42", "")
	assert.True(t, errors.Is(err, service.ErrRoomNotFound))
}

func TestRoomService_JoinRoom_ReturnsSnapshot(t *testing.T) {
	svc, mockRepo, mockCache := newRoomService(t)
	ctx := context.Background()

	room := &domain.Room{ID: "OPEN01", Name: "Open", Version: 9, LastActivity: time.Now().UTC()}
	state := &domain.RoomState{
		Room:    *room,
		HexData: map[string]domain.HexInfo{"3,2": {FillColor: "blue"}},
	}
	mockRepo.On("FindRoom", ctx, "OPEN01").Return(room, nil).Once()
	mockRepo.On("TouchActivity", ctx, "OPEN01").Return(nil).Once()
	mockRepo.On("GetState", ctx, "OPEN01").Return(state, nil).Once()
	mockCache.On("SyncSummary", ctx, mock.Anything).Return(nil).Once()

	got, err := svc.JoinRoom(ctx, "OPEN01", "")

	assert.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "blue", got.HexData["3,2"].FillColor)
	mockRepo.AssertExpectations(t)
}

func TestRoomService_DeleteRoom_OwnerWithOthersPresent(t *testing.T) {
	svc, mockRepo, _ := newRoomService(t)
	ctx := context.Background()

	owner := "cmdr"
	room := &domain.Room{ID: "OWNED1", OwnerUsername: &owner}
	mockRepo.On("FindRoom", ctx, "OWNED1").Return(room, nil).Once()

	err := svc.DeleteRoom(ctx, "OWNED1", service.Actor{Username: "cmdr"}, 3)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRoomNotEmpty), "owner cannot delete while others are connected")
	mockRepo.AssertNotCalled(t, "DeleteRoom", mock.Anything, mock.Anything)
}

func TestRoomService_DeleteRoom_NonOwnerForbidden(t *testing.T) {
	svc, mockRepo, _ := newRoomService(t)
	ctx := context.Background()

	owner := "cmdr"
	room := &domain.Room{ID: "OWNED1", OwnerUsername: &owner}
	mockRepo.On("FindRoom", ctx, "OWNED1").Return(room, nil).Once()

	err := svc.DeleteRoom(ctx, "OWNED1", service.Actor{Username: "intruder"}, 1)

	assert.True(t, errors.Is(err, service.ErrForbidden))
	mockRepo.AssertNotCalled(t, "DeleteRoom", mock.Anything, mock.Anything)
}

func TestRoomService_DeleteRoom_AdminUnconditional(t *testing.T) {
	svc, mockRepo, mockCache := newRoomService(t)
	ctx := context.Background()

	owner := "cmdr"
	room := &domain.Room{ID: "OWNED1", OwnerUsername: &owner}
	mockRepo.On("FindRoom", ctx, "OWNED1").Return(room, nil).Once()
	mockRepo.On("DeleteRoom", ctx, "OWNED1").Return(nil).Once()
	mockCache.On("Remove", ctx, "OWNED1").Return(nil).Once()

	err := svc.DeleteRoom(ctx, "OWNED1", service.Actor{Username: "boss", IsAdmin: true}, 5)

	assert.NoError(t, err, "admins delete regardless of ownership and occupancy")
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestRoomService_DeleteRoom_SoleParticipantOfAnonymousRoom(t *testing.T) {
	svc, mockRepo, mockCache := newRoomService(t)
	ctx := context.Background()

	room := &domain.Room{ID: "ANON01"}
	mockRepo.On("FindRoom", ctx, "ANON01").Return(room, nil).Once()
	mockRepo.On("DeleteRoom", ctx, "ANON01").Return(nil).Once()
	mockCache.On("Remove", ctx, "ANON01").Return(nil).Once()

	err := svc.DeleteRoom(ctx, "ANON01", service.Actor{DisplayName: "drifter"}, 1)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}
