package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
)

// RoomCache is a mock for repository.RoomCache.
type RoomCache struct {
	mock.Mock
}

func (m *RoomCache) GetSummary(ctx context.Context, roomID string) (*domain.RoomSummary, error) {
	args := m.Called(ctx, roomID)
	var summary *domain.RoomSummary
	if args.Get(0) != nil {
		summary = args.Get(0).(*domain.RoomSummary)
	}
	return summary, args.Error(1)
}

func (m *RoomCache) SyncSummary(ctx context.Context, summary domain.RoomSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func (m *RoomCache) ListSummaries(ctx context.Context) ([]domain.RoomSummary, error) {
	args := m.Called(ctx)
	var summaries []domain.RoomSummary
	if args.Get(0) != nil {
		summaries = args.Get(0).([]domain.RoomSummary)
	}
	return summaries, args.Error(1)
}

func (m *RoomCache) RoomIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	var ids []string
	if args.Get(0) != nil {
		ids = args.Get(0).([]string)
	}
	return ids, args.Error(1)
}

func (m *RoomCache) Remove(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *RoomCache) AddSession(ctx context.Context, roomID, sessionID string) error {
	args := m.Called(ctx, roomID, sessionID)
	return args.Error(0)
}

func (m *RoomCache) RemoveSession(ctx context.Context, roomID, sessionID string) error {
	args := m.Called(ctx, roomID, sessionID)
	return args.Error(0)
}

func (m *RoomCache) SessionCount(ctx context.Context, roomID string) (int, error) {
	args := m.Called(ctx, roomID)
	return args.Int(0), args.Error(1)
}

func (m *RoomCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}
