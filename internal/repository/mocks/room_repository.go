// Package mocks provides hand-written testify mocks for the repository
// interfaces, in the shape mockery would generate.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
)

// RoomRepository is a mock for repository.RoomRepository.
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) CreateRoom(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *RoomRepository) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	var room *domain.Room
	if args.Get(0) != nil {
		room = args.Get(0).(*domain.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepository) RoomExists(ctx context.Context, roomID string) (bool, error) {
	args := m.Called(ctx, roomID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepository) DeleteRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *RoomRepository) ListRooms(ctx context.Context) ([]domain.Room, error) {
	args := m.Called(ctx)
	var rooms []domain.Room
	if args.Get(0) != nil {
		rooms = args.Get(0).([]domain.Room)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepository) GetState(ctx context.Context, roomID string) (*domain.RoomState, error) {
	args := m.Called(ctx, roomID)
	var state *domain.RoomState
	if args.Get(0) != nil {
		state = args.Get(0).(*domain.RoomState)
	}
	return state, args.Error(1)
}

func (m *RoomRepository) UpsertHex(ctx context.Context, roomID, hexKey, fillColor, updatedBy string) (uint64, error) {
	args := m.Called(ctx, roomID, hexKey, fillColor, updatedBy)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *RoomRepository) EraseHex(ctx context.Context, roomID, hexKey string) (uint64, []domain.Line, error) {
	args := m.Called(ctx, roomID, hexKey)
	var lines []domain.Line
	if args.Get(1) != nil {
		lines = args.Get(1).([]domain.Line)
	}
	return args.Get(0).(uint64), lines, args.Error(2)
}

func (m *RoomRepository) AddLine(ctx context.Context, line *domain.Line) (uint64, error) {
	args := m.Called(ctx, line)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *RoomRepository) AddUnit(ctx context.Context, unit *domain.Unit) (uint64, error) {
	args := m.Called(ctx, unit)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *RoomRepository) UpdateUnit(ctx context.Context, roomID, unitID string, patch repository.UnitPatch) (uint64, *domain.Unit, error) {
	args := m.Called(ctx, roomID, unitID, patch)
	var unit *domain.Unit
	if args.Get(1) != nil {
		unit = args.Get(1).(*domain.Unit)
	}
	return args.Get(0).(uint64), unit, args.Error(2)
}

func (m *RoomRepository) MoveUnit(ctx context.Context, roomID, unitID, hexKey, movedBy string) (uint64, []domain.Unit, error) {
	args := m.Called(ctx, roomID, unitID, hexKey, movedBy)
	var units []domain.Unit
	if args.Get(1) != nil {
		units = args.Get(1).([]domain.Unit)
	}
	return args.Get(0).(uint64), units, args.Error(2)
}

func (m *RoomRepository) ReparentUnit(ctx context.Context, roomID, unitID string, parentID *string) (uint64, *domain.Unit, error) {
	args := m.Called(ctx, roomID, unitID, parentID)
	var unit *domain.Unit
	if args.Get(1) != nil {
		unit = args.Get(1).(*domain.Unit)
	}
	return args.Get(0).(uint64), unit, args.Error(2)
}

func (m *RoomRepository) DeleteUnit(ctx context.Context, roomID, unitID string) (uint64, error) {
	args := m.Called(ctx, roomID, unitID)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *RoomRepository) ReplaceState(ctx context.Context, roomID string, hexData map[string]domain.HexInfo, lines []domain.Line, units []domain.Unit, actor string) (uint64, error) {
	args := m.Called(ctx, roomID, hexData, lines, units, actor)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *RoomRepository) TouchActivity(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}
