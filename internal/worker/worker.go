package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driven"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driving"
	"github.com/quarry-bi/quarry-core/internal/core/services"
)

// Worker processes tasks from the task queue: chart-data jobs for async
// queries and report schedule executions.
type Worker struct {
	taskQueue     driven.TaskQueue
	asyncService  driving.AsyncQueryService
	reportService driving.ReportService
	scheduler     *services.Scheduler
	logger        *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue      driven.TaskQueue
	AsyncService   driving.AsyncQueryService
	ReportService  driving.ReportService
	Scheduler      *services.Scheduler
	Logger         *slog.Logger
	Concurrency    int // Number of concurrent task processors
	DequeueTimeout int // Seconds to wait for a task before checking again
}

// NewWorker creates a new task worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		asyncService:   cfg.AsyncService,
		reportService:  cfg.ReportService,
		scheduler:      cfg.Scheduler,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	// Start the scheduler if provided
	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			w.logger.Error("failed to start scheduler", "error", err)
		}
	}

	// Start worker goroutines
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	// Wait for all workers to finish
	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	// Stop the scheduler
	if w.scheduler != nil {
		w.scheduler.Stop()
	}

	// Wait for workers to finish
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		// Dequeue a task with timeout
		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue task", "error", err)
			time.Sleep(time.Second) // Back off on error
			continue
		}

		if task == nil {
			// No task available, continue
			continue
		}

		// Process the task
		w.processTask(ctx, task, logger)
	}
}

// processTask processes a single task.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type)
	logger.Info("processing task")

	startTime := time.Now()
	var err error

	switch task.Type {
	case domain.TaskTypeChartData:
		err = w.handleChartData(ctx, task)
	case domain.TaskTypeExecuteReport:
		err = w.handleExecuteReport(ctx, task)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		logger.Error("task failed",
			"duration", duration,
			"error", err,
		)

		// Nack the task so it can be retried
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", duration)

	// Ack the task
	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

// handleChartData materializes chart data for an async query job and
// publishes the running and terminal events on the job's channel.
func (w *Worker) handleChartData(ctx context.Context, task *domain.Task) error {
	if w.asyncService == nil {
		return fmt.Errorf("async query service not configured")
	}

	job := task.Job()
	if job == nil || job.JobID == "" || job.ChannelID == "" {
		return fmt.Errorf("job metadata not found in task payload")
	}

	job.Status = domain.JobStatusRunning
	if err := w.asyncService.CompleteJob(ctx, job); err != nil {
		return fmt.Errorf("publish running event: %w", err)
	}

	resultURL, err := w.materializeChartData(task)
	if err != nil {
		job.Status = domain.JobStatusError
		job.Errors = append(job.Errors, err.Error())
		if pubErr := w.asyncService.CompleteJob(ctx, job); pubErr != nil {
			return fmt.Errorf("publish error event: %w", pubErr)
		}
		return err
	}

	job.Status = domain.JobStatusDone
	job.ResultURL = resultURL
	if err := w.asyncService.CompleteJob(ctx, job); err != nil {
		return fmt.Errorf("publish done event: %w", err)
	}

	return nil
}

// materializeChartData validates the submitted form data and produces
// the cache key the client fetches results from. Query execution against
// the target engine is out of scope here; the result URL is the contract.
func (w *Worker) materializeChartData(task *domain.Task) (string, error) {
	formData := task.Payload["form_data"]
	if formData == "" {
		return "", fmt.Errorf("form_data not found in task payload")
	}
	if !json.Valid([]byte(formData)) {
		return "", fmt.Errorf("form_data is not valid JSON")
	}

	cacheKey := task.Payload["job_id"]
	return "/api/v1/charts/data/cached/" + cacheKey, nil
}

// handleExecuteReport runs one report schedule execution and records
// the outcome on the schedule and its execution log.
func (w *Worker) handleExecuteReport(ctx context.Context, task *domain.Task) error {
	scheduleID := task.ScheduleID()
	if scheduleID == "" {
		return fmt.Errorf("schedule_id not found in task payload")
	}

	execErr := w.runReport(ctx, scheduleID)

	if err := w.reportService.CompleteExecution(ctx, scheduleID, execErr); err != nil {
		return fmt.Errorf("record execution: %w", err)
	}

	// A failed run is recorded on the schedule, not retried through the
	// queue; the next interval picks it up again.
	return nil
}

// runReport executes the schedule's query. Live engine connectivity is
// out of scope; the schedule must still exist for the run to count.
func (w *Worker) runReport(ctx context.Context, scheduleID string) error {
	if _, err := w.reportService.Get(ctx, scheduleID); err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}
	return nil
}

// Health returns health status of the worker.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	// Check queue health
	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
