package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// TaskType identifies the type of background task
type TaskType string

const (
	// TaskTypeChartData materializes chart data for an async query job
	TaskTypeChartData TaskType = "chart_data"
	// TaskTypeExecuteReport runs one report schedule execution
	TaskTypeExecuteReport TaskType = "execute_report"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a background job to be processed by workers
type Task struct {
	// ID is the unique identifier for this task
	ID string `json:"id"`

	// Type identifies what kind of task this is
	Type TaskType `json:"type"`

	// Payload contains task-specific data
	// For chart_data: the serialized job metadata plus form data
	// For execute_report: {"schedule_id": "rs-123"}
	Payload map[string]string `json:"payload"`

	// Status is the current state of the task
	Status TaskStatus `json:"status"`

	// Priority determines processing order (higher = more urgent)
	Priority int `json:"priority"`

	// Attempts is how many times this task has been attempted
	Attempts int `json:"attempts"`

	// MaxAttempts is the maximum retry count before giving up
	MaxAttempts int `json:"max_attempts"`

	// Error contains the last error message if failed
	Error string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ScheduledFor is when the task should be processed (for delayed tasks)
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTask creates a new task with default values
func NewTask(taskType TaskType, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		Payload:      payload,
		Status:       TaskStatusPending,
		Priority:     0,
		Attempts:     0,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewChartDataTask creates a task that materializes chart data for an
// async query job.
func NewChartDataTask(job *JobMetadata, formData string) *Task {
	return NewTask(TaskTypeChartData, map[string]string{
		"channel_id": job.ChannelID,
		"job_id":     job.JobID,
		"user_id":    job.UserID,
		"form_data":  formData,
	})
}

// NewExecuteReportTask creates a task to run one report schedule.
func NewExecuteReportTask(scheduleID string) *Task {
	return NewTask(TaskTypeExecuteReport, map[string]string{
		"schedule_id": scheduleID,
	})
}

// ScheduleID extracts the schedule_id from the payload (execute_report tasks)
func (t *Task) ScheduleID() string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload["schedule_id"]
}

// Job reconstructs the async job metadata from the payload (chart_data tasks)
func (t *Task) Job() *JobMetadata {
	if t.Payload == nil {
		return nil
	}
	return &JobMetadata{
		ChannelID: t.Payload["channel_id"],
		JobID:     t.Payload["job_id"],
		UserID:    t.Payload["user_id"],
		Status:    TaskJobStatus(t.Status),
		Errors:    []string{},
	}
}

// TaskJobStatus maps a queue task status onto the async job lifecycle.
func TaskJobStatus(s TaskStatus) JobStatus {
	switch s {
	case TaskStatusProcessing:
		return JobStatusRunning
	case TaskStatusCompleted:
		return JobStatusDone
	case TaskStatusFailed:
		return JobStatusError
	default:
		return JobStatusPending
	}
}

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// IsReady returns true if the task is ready to be processed
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && time.Now().After(t.ScheduledFor)
}

// MarkProcessing updates the task to processing state
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Attempts++
}

// MarkCompleted updates the task to completed state
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

// MarkFailed updates the task to failed state
func (t *Task) MarkFailed(err string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.UpdatedAt = now
	t.Error = err
}

// Retry resets the task for retry with exponential backoff
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err

	// Exponential backoff: 1s, 2s, 4s, 8s, etc.
	backoff := time.Duration(1<<t.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	t.ScheduledFor = now.Add(backoff)
}

// TaskResult represents the outcome of processing a task
type TaskResult struct {
	TaskID   string        `json:"task_id"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}
