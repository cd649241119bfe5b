package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
	"github.com/olehtrofimiuk/MechMapOnline/internal/tasks"
)

// Server wraps the asynq worker: it drains the edit-log queue and runs the
// periodic cache reconciliation.
type Server struct {
	server   *asynq.Server
	log      *logrus.Entry
	editRepo repository.EditRepository
	roomRepo repository.RoomRepository
	cache    repository.RoomCache
}

func NewServer(redisOpt asynq.RedisClientOpt, editRepo repository.EditRepository, roomRepo repository.RoomRepository, cache repository.RoomCache, logger *logrus.Logger) *Server {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID := ""
				if rw := task.ResultWriter(); rw != nil {
					taskID = rw.TaskID()
				}
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &Server{
		server:   server,
		log:      logEntry,
		editRepo: editRepo,
		roomRepo: roomRepo,
		cache:    cache,
	}
}

// Start runs the worker. Call it from its own goroutine.
func (ws *Server) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeEditPersist, NewEditPersistHandler(ws.editRepo).ProcessTask)
	mux.HandleFunc(tasks.TypeCacheReconcile, NewCacheReconcileHandler(ws.roomRepo, ws.cache).ProcessTask)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown stops the worker gracefully.
func (ws *Server) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
