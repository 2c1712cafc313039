package domain

import "time"

// ReportState represents the execution state of a report schedule
type ReportState string

const (
	ReportStateWorking ReportState = "working"
	ReportStateSuccess ReportState = "success"
	ReportStateError   ReportState = "error"
)

// ReportSchedule is a recurring query execution against a registered
// database. One execution at a time: a schedule stuck in working state
// past its timeout is considered failed and becomes schedulable again.
type ReportSchedule struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	DatabaseID string        `json:"database_id"`
	Query      string        `json:"query"`
	Interval   time.Duration `json:"interval"`
	Enabled    bool          `json:"enabled"`

	// WorkingTimeout bounds a single execution
	WorkingTimeout time.Duration `json:"working_timeout"`

	LastState ReportState `json:"last_state,omitempty"`
	LastRun   *time.Time  `json:"last_run,omitempty"`
	NextRun   time.Time   `json:"next_run"`
	LastError string      `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by"`
}

// NewReportSchedule creates an enabled schedule with defaults applied.
func NewReportSchedule(name, databaseID, query string, interval time.Duration) *ReportSchedule {
	now := time.Now()
	return &ReportSchedule{
		ID:             GenerateID(),
		Name:           name,
		DatabaseID:     databaseID,
		Query:          query,
		Interval:       interval,
		Enabled:        true,
		WorkingTimeout: 10 * time.Minute,
		NextRun:        now.Add(interval),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsDue returns true if the schedule should be triggered now.
func (r *ReportSchedule) IsDue() bool {
	return r.Enabled && time.Now().After(r.NextRun)
}

// IsWorking reports whether an execution is still considered in
// flight. Past the working timeout the previous run counts as lost.
func (r *ReportSchedule) IsWorking() bool {
	if r.LastState != ReportStateWorking || r.LastRun == nil {
		return false
	}
	return time.Since(*r.LastRun) < r.WorkingTimeout
}

// MarkWorking records the start of an execution and advances NextRun.
func (r *ReportSchedule) MarkWorking() {
	now := time.Now()
	r.LastState = ReportStateWorking
	r.LastRun = &now
	r.NextRun = now.Add(r.Interval)
	r.UpdatedAt = now
}

// MarkSuccess records a completed execution.
func (r *ReportSchedule) MarkSuccess() {
	r.LastState = ReportStateSuccess
	r.LastError = ""
	r.UpdatedAt = time.Now()
}

// MarkError records a failed execution.
func (r *ReportSchedule) MarkError(err string) {
	r.LastState = ReportStateError
	r.LastError = err
	r.UpdatedAt = time.Now()
}

// ReportExecutionLog is the audit trail of one schedule execution.
type ReportExecutionLog struct {
	ID         string      `json:"id"`
	ScheduleID string      `json:"schedule_id"`
	State      ReportState `json:"state"`
	StartedAt  time.Time   `json:"started_at"`
	EndedAt    *time.Time  `json:"ended_at,omitempty"`
	Error      string      `json:"error,omitempty"`
}
