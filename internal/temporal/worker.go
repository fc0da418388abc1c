package temporal

import (
	"context"
	"time"

	"github.com/flexprice/planshift/internal/config"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/service"
	"go.temporal.io/sdk/worker"
	"go.uber.org/fx"
)

// Worker polls the migration task queue
type Worker struct {
	worker    worker.Worker
	taskQueue string
	log       *logger.Logger
}

// NewWorker registers the migration workflow and activity on a worker for
// cfg.TaskQueue. The executor must be the process-wide instance so that
// cancellation requests reach running activities.
func NewWorker(client *TemporalClient, cfg config.TemporalConfig, executor service.MigrationExecutorService, log *logger.Logger) *Worker {
	w := worker.New(client.Client, cfg.TaskQueue, worker.Options{
		// one activity executes a whole migration plan
		MaxConcurrentActivityExecutionSize: 4,
		WorkerStopTimeout:                  30 * time.Second,
	})
	RegisterWorkflowsAndActivities(w, executor, log)

	return &Worker{
		worker:    w,
		taskQueue: cfg.TaskQueue,
		log:       log,
	}
}

// RegisterWithLifecycle starts the worker with the app and stops it on shutdown
func (w *Worker) RegisterWithLifecycle(lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			w.log.Infow("starting temporal worker", "task_queue", w.taskQueue)
			return w.worker.Start()
		},
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				w.worker.Stop()
				close(done)
			}()

			select {
			case <-done:
				w.log.Infow("temporal worker stopped", "task_queue", w.taskQueue)
			case <-ctx.Done():
				w.log.Errorw("timed out stopping temporal worker", "task_queue", w.taskQueue)
			}
			return nil
		},
	})
}
