package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
	"github.com/olehtrofimiuk/MechMapOnline/internal/tasks"
)

// EditPersistHandler appends accepted mutations to the edit log.
type EditPersistHandler struct {
	editRepo repository.EditRepository
}

func NewEditPersistHandler(editRepo repository.EditRepository) *EditPersistHandler {
	return &EditPersistHandler{editRepo: editRepo}
}

// ProcessTask implements asynq.Handler.
func (h *EditPersistHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	var payload tasks.EditPersistPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	records := []domain.EditRecord{payload.Record}
	if err := h.editRepo.SaveBatch(ctx, records); err != nil {
		logCtx.WithError(err).Errorf("Failed to save edit record for room %s version %d", payload.Record.RoomID, payload.Record.Version)
		return fmt.Errorf("failed to save edit record: %w", err)
	}

	logCtx.WithFields(logrus.Fields{
		"room_id": payload.Record.RoomID,
		"event":   payload.Record.EventType,
		"version": payload.Record.Version,
	}).Info("Edit record persisted")
	return nil
}

// CacheReconcileHandler rebuilds cached room summaries from the store. The
// cache is derived state: any entry the store does not confirm gets
// dropped, and drift from missed best-effort syncs heals here.
type CacheReconcileHandler struct {
	roomRepo repository.RoomRepository
	cache    repository.RoomCache
}

func NewCacheReconcileHandler(roomRepo repository.RoomRepository, cache repository.RoomCache) *CacheReconcileHandler {
	return &CacheReconcileHandler{roomRepo: roomRepo, cache: cache}
}

// ProcessTask implements asynq.Handler.
func (h *CacheReconcileHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	rooms, err := h.roomRepo.ListRooms(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list rooms for cache reconciliation")
		return fmt.Errorf("failed to list rooms: %w", err)
	}

	stored := make(map[string]struct{}, len(rooms))
	synced := 0
	for _, room := range rooms {
		stored[room.ID] = struct{}{}
		if err := h.cache.SyncSummary(ctx, room.Summary()); err != nil {
			logCtx.WithError(err).WithField("room_id", room.ID).Warn("Failed to sync room summary")
			continue
		}
		synced++
	}

	cachedIDs, err := h.cache.RoomIDs(ctx)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to list cached room ids, skipping stale sweep")
	} else {
		for _, id := range cachedIDs {
			if _, ok := stored[id]; ok {
				continue
			}
			if err := h.cache.Remove(ctx, id); err != nil {
				logCtx.WithError(err).WithField("room_id", id).Warn("Failed to drop stale cache entry")
			}
		}
	}

	logCtx.WithFields(logrus.Fields{"rooms": len(rooms), "synced": synced}).Info("Cache reconciliation complete")
	return nil
}
