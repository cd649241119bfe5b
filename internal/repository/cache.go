package repository

import (
	"context"
	"time"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
)

// RoomCache is the best-effort in-memory mirror of active rooms, plus purely
// ephemeral presence state (the live session set per room) that is never
// persisted. The store is the source of truth: the cache is a derived
// projection, refreshed by the same code path that performed each confirmed
// store write, and expected to be repopulated on the next read when it
// disagrees.
type RoomCache interface {
	// GetSummary returns ErrNotFound on a cache miss.
	GetSummary(ctx context.Context, roomID string) (*domain.RoomSummary, error)

	// SyncSummary mirrors a confirmed store write into the cache.
	SyncSummary(ctx context.Context, summary domain.RoomSummary) error

	// ListSummaries returns every cached summary with live user counts
	// filled in. The result may be partial; the caller falls back to the
	// store for rooms the cache has not seen.
	ListSummaries(ctx context.Context) ([]domain.RoomSummary, error)

	// RoomIDs returns the cache's room index.
	RoomIDs(ctx context.Context) ([]string, error)

	// Remove drops a room's cache entry and presence set (room deleted).
	Remove(ctx context.Context, roomID string) error

	// AddSession / RemoveSession track live membership per room.
	AddSession(ctx context.Context, roomID, sessionID string) error
	RemoveSession(ctx context.Context, roomID, sessionID string) error

	// SessionCount returns the live member count; 0 for unknown rooms.
	SessionCount(ctx context.Context, roomID string) (int, error)

	// CheckRateLimit increments the counter for key and reports whether the
	// limit was exceeded within the window.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
