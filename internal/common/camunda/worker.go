// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"driver-application/internal/common/logger"
	"driver-application/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler completes or fails the job itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// JobRecorder receives one observation per handled job. observability.Observability implements it.
type JobRecorder interface {
	RecordJob(ctx context.Context, taskType, status string, duration time.Duration)
}

// WorkerOptions tunes a job worker. Zero values keep the client defaults.
type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
	Recorder      JobRecorder
}

type Worker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for taskType.
func NewWorker(client zbc.Client, taskType string, opts WorkerOptions, handler JobHandler, log logger.Logger) *Worker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})

	step := client.NewJobWorker().
		JobType(taskType).
		Handler(func(client worker.JobClient, job entities.Job) {
			start := time.Now()
			status := "handled"
			metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
			defer func() {
				if r := recover(); r != nil {
					status = "panicked"
					log.Error("handler panicked", map[string]interface{}{
						"jobKey": job.Key,
						"panic":  r,
					})
				}
				elapsed := time.Since(start)
				metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()
				metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
				if opts.Recorder != nil {
					opts.Recorder.RecordJob(context.Background(), taskType, status, elapsed)
				}
			}()
			handler.Handle(client, job)
		})
	if opts.MaxJobsActive > 0 {
		step = step.MaxJobsActive(opts.MaxJobsActive)
	}
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}

	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})

	return &Worker{
		worker:   step.Open(),
		logger:   log,
		taskType: taskType,
	}
}

func (w *Worker) TaskType() string {
	return w.taskType
}

// Stop closes the job worker and waits for in-flight jobs.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
