package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ReportStore = (*ReportStore)(nil)

// ReportStore implements driven.ReportStore using PostgreSQL
type ReportStore struct {
	db *DB
}

// NewReportStore creates a new ReportStore
func NewReportStore(db *DB) *ReportStore {
	return &ReportStore{db: db}
}

// Save creates or updates a report schedule
func (s *ReportStore) Save(ctx context.Context, schedule *domain.ReportSchedule) error {
	query := `
		INSERT INTO report_schedules (
			id, name, database_id, query, interval_ns, enabled, working_timeout_ns,
			last_state, last_run, next_run, last_error, created_at, updated_at, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			database_id = EXCLUDED.database_id,
			query = EXCLUDED.query,
			interval_ns = EXCLUDED.interval_ns,
			enabled = EXCLUDED.enabled,
			working_timeout_ns = EXCLUDED.working_timeout_ns,
			last_state = EXCLUDED.last_state,
			last_run = EXCLUDED.last_run,
			next_run = EXCLUDED.next_run,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.Name,
		schedule.DatabaseID,
		schedule.Query,
		int64(schedule.Interval),
		schedule.Enabled,
		int64(schedule.WorkingTimeout),
		string(schedule.LastState),
		NullTime(schedule.LastRun),
		schedule.NextRun,
		schedule.LastError,
		schedule.CreatedAt,
		schedule.UpdatedAt,
		schedule.CreatedBy,
	)
	return err
}

// Get retrieves a schedule by ID
func (s *ReportStore) Get(ctx context.Context, id string) (*domain.ReportSchedule, error) {
	query := scheduleSelect + ` WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)
	schedule, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

// List retrieves all schedules
func (s *ReportStore) List(ctx context.Context) ([]*domain.ReportSchedule, error) {
	query := scheduleSelect + ` ORDER BY next_run ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSchedules(rows)
}

// Delete removes a schedule and its execution history
func (s *ReportStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM report_schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// GetDue retrieves enabled schedules whose next run is in the past
func (s *ReportStore) GetDue(ctx context.Context) ([]*domain.ReportSchedule, error) {
	query := scheduleSelect + ` WHERE enabled = true AND next_run <= $1 ORDER BY next_run ASC`

	rows, err := s.db.QueryContext(ctx, query, time.Now())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSchedules(rows)
}

// LogExecution appends one entry to a schedule's execution history
func (s *ReportStore) LogExecution(ctx context.Context, log *domain.ReportExecutionLog) error {
	query := `
		INSERT INTO report_executions (id, schedule_id, state, started_at, ended_at, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			ended_at = EXCLUDED.ended_at,
			error = EXCLUDED.error
	`

	_, err := s.db.ExecContext(ctx, query,
		log.ID,
		log.ScheduleID,
		string(log.State),
		log.StartedAt,
		NullTime(log.EndedAt),
		log.Error,
	)
	return err
}

// ListExecutions retrieves the most recent executions for a schedule
func (s *ReportStore) ListExecutions(ctx context.Context, scheduleID string, limit int) ([]*domain.ReportExecutionLog, error) {
	query := `
		SELECT id, schedule_id, state, started_at, ended_at, error
		FROM report_executions
		WHERE schedule_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, scheduleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.ReportExecutionLog
	for rows.Next() {
		var log domain.ReportExecutionLog
		var endedAt sql.NullTime

		err := rows.Scan(
			&log.ID,
			&log.ScheduleID,
			&log.State,
			&log.StartedAt,
			&endedAt,
			&log.Error,
		)
		if err != nil {
			return nil, err
		}

		log.EndedAt = TimePtr(endedAt)
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}

const scheduleSelect = `
	SELECT id, name, database_id, query, interval_ns, enabled, working_timeout_ns,
		   last_state, last_run, next_run, last_error, created_at, updated_at, created_by
	FROM report_schedules
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduleRow(row rowScanner) (*domain.ReportSchedule, error) {
	var schedule domain.ReportSchedule
	var lastRun sql.NullTime
	var intervalNs, workingTimeoutNs int64

	err := row.Scan(
		&schedule.ID,
		&schedule.Name,
		&schedule.DatabaseID,
		&schedule.Query,
		&intervalNs,
		&schedule.Enabled,
		&workingTimeoutNs,
		&schedule.LastState,
		&lastRun,
		&schedule.NextRun,
		&schedule.LastError,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
		&schedule.CreatedBy,
	)
	if err != nil {
		return nil, err
	}

	schedule.Interval = time.Duration(intervalNs)
	schedule.WorkingTimeout = time.Duration(workingTimeoutNs)
	schedule.LastRun = TimePtr(lastRun)

	return &schedule, nil
}

func scanSchedule(row *sql.Row) (*domain.ReportSchedule, error) {
	return scanScheduleRow(row)
}

func scanSchedules(rows *sql.Rows) ([]*domain.ReportSchedule, error) {
	var schedules []*domain.ReportSchedule
	for rows.Next() {
		schedule, err := scanScheduleRow(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return schedules, nil
}
