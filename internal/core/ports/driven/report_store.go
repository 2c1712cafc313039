package driven

import (
	"context"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
)

// ReportStore persists report schedules and their execution history
// (PostgreSQL).
type ReportStore interface {
	// Save creates or updates a report schedule
	Save(ctx context.Context, schedule *domain.ReportSchedule) error

	// Get retrieves a schedule by ID
	Get(ctx context.Context, id string) (*domain.ReportSchedule, error)

	// List retrieves all schedules
	List(ctx context.Context) ([]*domain.ReportSchedule, error)

	// Delete removes a schedule and its execution history
	Delete(ctx context.Context, id string) error

	// GetDue retrieves enabled schedules whose next run is in the past
	GetDue(ctx context.Context) ([]*domain.ReportSchedule, error)

	// LogExecution appends one entry to a schedule's execution history
	LogExecution(ctx context.Context, log *domain.ReportExecutionLog) error

	// ListExecutions retrieves the most recent executions for a schedule
	ListExecutions(ctx context.Context, scheduleID string, limit int) ([]*domain.ReportExecutionLog, error)
}
