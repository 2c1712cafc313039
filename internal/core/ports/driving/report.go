package driving

import (
	"context"
	"time"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
)

// ReportService manages report schedules. Scheduling itself runs in the
// background; this service covers the admin CRUD surface plus the state
// transitions used by the scheduler and workers.
type ReportService interface {
	// Create registers a new report schedule
	Create(ctx context.Context, req CreateReportRequest) (*domain.ReportSchedule, error)

	// Get retrieves a schedule by ID
	Get(ctx context.Context, id string) (*domain.ReportSchedule, error)

	// List retrieves all schedules
	List(ctx context.Context) ([]*domain.ReportSchedule, error)

	// Update modifies a schedule
	Update(ctx context.Context, id string, req UpdateReportRequest) (*domain.ReportSchedule, error)

	// Delete removes a schedule
	Delete(ctx context.Context, id string) error

	// ListExecutions returns the most recent executions for a schedule
	ListExecutions(ctx context.Context, id string, limit int) ([]*domain.ReportExecutionLog, error)

	// DispatchDue enqueues execution tasks for all due schedules and
	// returns how many were dispatched. A schedule still working within
	// its timeout is skipped.
	DispatchDue(ctx context.Context) (int, error)

	// CompleteExecution records the outcome of one schedule execution.
	// Called by workers.
	CompleteExecution(ctx context.Context, scheduleID string, execErr error) error
}

// CreateReportRequest represents a request to create a report schedule
type CreateReportRequest struct {
	Name           string        `json:"name"`
	DatabaseID     string        `json:"database_id"`
	Query          string        `json:"query"`
	Interval       time.Duration `json:"interval"`
	WorkingTimeout time.Duration `json:"working_timeout,omitempty"`
}

// UpdateReportRequest represents a request to update a report schedule.
// Nil fields are left unchanged.
type UpdateReportRequest struct {
	Name           *string        `json:"name,omitempty"`
	Query          *string        `json:"query,omitempty"`
	Interval       *time.Duration `json:"interval,omitempty"`
	Enabled        *bool          `json:"enabled,omitempty"`
	WorkingTimeout *time.Duration `json:"working_timeout,omitempty"`
}
