package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"warehouse-assistant/internal/common/logger"
)

// JobHandler is a task worker the Zeebe client polls jobs for.
type JobHandler interface {
	GetTaskType() string
	MaxJobsActive() int
	Handle(client worker.JobClient, job entities.Job)
}

type Worker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for handler's task type. timeout is the job
// activation timeout the broker holds the job for.
func NewWorker(client zbc.Client, handler JobHandler, timeout time.Duration, log logger.Logger) *Worker {
	taskType := handler.GetTaskType()
	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(handler.MaxJobsActive()).
		Timeout(timeout).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": handler.MaxJobsActive(),
	})
	return &Worker{worker: jobWorker, logger: log, taskType: taskType}
}

// Stop closes the job worker and waits for in-flight jobs. The client is
// owned by the caller.
func (w *Worker) Stop(ctx context.Context) {
	w.logger.Info("stopping worker", map[string]interface{}{"taskType": w.taskType})
	done := make(chan struct{})
	go func() {
		w.worker.Close()
		w.worker.AwaitClose()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("worker did not stop in time", map[string]interface{}{"taskType": w.taskType})
	}
}
