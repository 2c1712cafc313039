package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driven"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driving"
)

// Ensure reportService implements ReportService
var _ driving.ReportService = (*reportService)(nil)

// reportService implements the ReportService interface.
// One execution per schedule at a time: a schedule in working state
// within its timeout is never dispatched again.
type reportService struct {
	reportStore   driven.ReportStore
	databaseStore driven.DatabaseStore
	taskQueue     driven.TaskQueue
	logger        *slog.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(
	reportStore driven.ReportStore,
	databaseStore driven.DatabaseStore,
	taskQueue driven.TaskQueue,
	logger *slog.Logger,
) driving.ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &reportService{
		reportStore:   reportStore,
		databaseStore: databaseStore,
		taskQueue:     taskQueue,
		logger:        logger,
	}
}

// Create registers a new report schedule.
func (s *reportService) Create(ctx context.Context, req driving.CreateReportRequest) (*domain.ReportSchedule, error) {
	if req.Name == "" || req.DatabaseID == "" || req.Query == "" {
		return nil, domain.ErrInvalidInput
	}
	if req.Interval < time.Minute {
		return nil, domain.ErrInvalidInput
	}

	// The target database must exist
	if _, err := s.databaseStore.Get(ctx, req.DatabaseID); err != nil {
		return nil, err
	}

	schedule := domain.NewReportSchedule(req.Name, req.DatabaseID, req.Query, req.Interval)
	if req.WorkingTimeout > 0 {
		schedule.WorkingTimeout = req.WorkingTimeout
	}

	if err := s.reportStore.Save(ctx, schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

// Get retrieves a schedule by ID.
func (s *reportService) Get(ctx context.Context, id string) (*domain.ReportSchedule, error) {
	return s.reportStore.Get(ctx, id)
}

// List retrieves all schedules.
func (s *reportService) List(ctx context.Context) ([]*domain.ReportSchedule, error) {
	return s.reportStore.List(ctx)
}

// Update modifies a schedule.
func (s *reportService) Update(ctx context.Context, id string, req driving.UpdateReportRequest) (*domain.ReportSchedule, error) {
	schedule, err := s.reportStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, domain.ErrInvalidInput
		}
		schedule.Name = *req.Name
	}
	if req.Query != nil {
		schedule.Query = *req.Query
	}
	if req.Interval != nil {
		if *req.Interval < time.Minute {
			return nil, domain.ErrInvalidInput
		}
		schedule.Interval = *req.Interval
	}
	if req.Enabled != nil {
		schedule.Enabled = *req.Enabled
	}
	if req.WorkingTimeout != nil {
		schedule.WorkingTimeout = *req.WorkingTimeout
	}
	schedule.UpdatedAt = time.Now()

	if err := s.reportStore.Save(ctx, schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

// Delete removes a schedule.
func (s *reportService) Delete(ctx context.Context, id string) error {
	return s.reportStore.Delete(ctx, id)
}

// ListExecutions returns the most recent executions for a schedule.
func (s *reportService) ListExecutions(ctx context.Context, id string, limit int) ([]*domain.ReportExecutionLog, error) {
	if _, err := s.reportStore.Get(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return s.reportStore.ListExecutions(ctx, id, limit)
}

// DispatchDue enqueues execution tasks for all due schedules.
// Schedules still working within their timeout are skipped; a schedule
// stuck past the timeout is treated as lost and dispatched again.
func (s *reportService) DispatchDue(ctx context.Context) (int, error) {
	due, err := s.reportStore.GetDue(ctx)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, schedule := range due {
		if schedule.IsWorking() {
			s.logger.Debug("skipping working report schedule", "schedule_id", schedule.ID)
			continue
		}

		task := domain.NewExecuteReportTask(schedule.ID)
		if err := s.taskQueue.Enqueue(ctx, task); err != nil {
			s.logger.Error("failed to enqueue report execution",
				"schedule_id", schedule.ID,
				"error", err,
			)
			continue
		}

		schedule.MarkWorking()
		if err := s.reportStore.Save(ctx, schedule); err != nil {
			s.logger.Warn("failed to mark report schedule working",
				"schedule_id", schedule.ID,
				"error", err,
			)
			continue
		}

		_ = s.reportStore.LogExecution(ctx, &domain.ReportExecutionLog{
			ID:         generateID(),
			ScheduleID: schedule.ID,
			State:      domain.ReportStateWorking,
			StartedAt:  *schedule.LastRun,
		})

		s.logger.Info("dispatched report execution",
			"schedule_id", schedule.ID,
			"task_id", task.ID,
		)
		dispatched++
	}

	return dispatched, nil
}

// CompleteExecution records the outcome of one schedule execution.
func (s *reportService) CompleteExecution(ctx context.Context, scheduleID string, execErr error) error {
	schedule, err := s.reportStore.Get(ctx, scheduleID)
	if err != nil {
		return err
	}

	now := time.Now()
	state := domain.ReportStateSuccess
	errMsg := ""
	if execErr != nil {
		state = domain.ReportStateError
		errMsg = execErr.Error()
		schedule.MarkError(errMsg)
	} else {
		schedule.MarkSuccess()
	}

	if err := s.reportStore.Save(ctx, schedule); err != nil {
		return err
	}

	startedAt := now
	if schedule.LastRun != nil {
		startedAt = *schedule.LastRun
	}

	return s.reportStore.LogExecution(ctx, &domain.ReportExecutionLog{
		ID:         generateID(),
		ScheduleID: scheduleID,
		State:      state,
		StartedAt:  startedAt,
		EndedAt:    &now,
		Error:      errMsg,
	})
}
