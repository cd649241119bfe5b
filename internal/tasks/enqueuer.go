package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
)

// Enqueuer hands tasks to asynq. It is the service layer's only contact
// with the queue.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(redisOpt asynq.RedisClientOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(redisOpt)}
}

// EnqueueEdit queues one edit record for background persistence on the low
// queue. The edit log is an audit trail, so it yields to everything else.
func (e *Enqueuer) EnqueueEdit(ctx context.Context, record domain.EditRecord) error {
	payloadBytes, err := NewEditPersistPayload(record)
	if err != nil {
		return fmt.Errorf("failed to marshal edit payload: %w", err)
	}
	task := asynq.NewTask(TypeEditPersist, payloadBytes)
	info, err := e.client.EnqueueContext(ctx, task, asynq.Queue("low"), asynq.MaxRetry(3))
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TypeEditPersist, err)
	}
	logrus.WithFields(logrus.Fields{
		"task_id":   info.ID,
		"task_type": info.Type,
		"queue":     info.Queue,
		"room_id":   record.RoomID,
	}).Debug("Edit record enqueued")
	return nil
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}
