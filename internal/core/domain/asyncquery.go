package domain

import (
	"encoding/json"
	"strconv"
)

// JobStatus represents the lifecycle state of an async query job
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusError   JobStatus = "error"
	JobStatusDone    JobStatus = "done"
)

// MaxEventCount caps how many events a single poll returns.
const MaxEventCount = 100

// JobMetadata describes one async query job. Every update to a job is
// published as an event on the owning channel's stream.
type JobMetadata struct {
	ChannelID string    `json:"channel_id"`
	JobID     string    `json:"job_id"`
	UserID    string    `json:"user_id,omitempty"`
	Status    JobStatus `json:"status"`
	Errors    []string  `json:"errors"`
	ResultURL string    `json:"result_url,omitempty"`
}

// NewJobMetadata initializes a pending job bound to a channel.
func NewJobMetadata(channelID, userID string) *JobMetadata {
	return &JobMetadata{
		ChannelID: channelID,
		JobID:     GenerateID(),
		UserID:    userID,
		Status:    JobStatusPending,
		Errors:    []string{},
	}
}

// JobEvent is one entry read back from a channel stream. ID is the
// stream entry ID ("<ms>-<seq>") used as the client's polling cursor.
type JobEvent struct {
	ID   string
	Data JobMetadata
}

// MarshalJSON flattens the event so clients receive the job metadata
// with the stream ID alongside it.
func (e JobEvent) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID string `json:"id"`
		JobMetadata
	}
	return json.Marshal(wire{ID: e.ID, JobMetadata: e.Data})
}

// IncrementEventID advances a stream entry ID past the given one, so
// the next poll starts strictly after the last event the client saw.
// Stream IDs look like "1607477697866-0"; anything else is returned
// unchanged.
func IncrementEventID(entryID string) string {
	if entryID == "" {
		return entryID
	}
	last := entryID[len(entryID)-1]
	if last < '0' || last > '9' {
		return entryID
	}
	n, err := strconv.Atoi(string(last))
	if err != nil {
		return entryID
	}
	return entryID[:len(entryID)-1] + strconv.Itoa(n+1)
}
