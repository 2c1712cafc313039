package domain

import (
	"encoding/json"
	"testing"
)

func TestNewJobMetadata(t *testing.T) {
	job := NewJobMetadata("chan-123", "user-456")

	if job.ChannelID != "chan-123" {
		t.Errorf("expected channel chan-123, got %s", job.ChannelID)
	}
	if job.UserID != "user-456" {
		t.Errorf("expected user user-456, got %s", job.UserID)
	}
	if job.JobID == "" {
		t.Error("expected a job ID")
	}
	if job.Status != JobStatusPending {
		t.Errorf("expected status pending, got %s", job.Status)
	}
	if job.Errors == nil {
		t.Error("expected errors to be an empty slice, not nil")
	}
}

func TestJobMetadata_JSON(t *testing.T) {
	job := &JobMetadata{
		ChannelID: "chan-1",
		JobID:     "job-1",
		Status:    JobStatusDone,
		Errors:    []string{},
		ResultURL: "/api/v1/async-events/results/job-1",
	}

	out, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["channel_id"] != "chan-1" {
		t.Errorf("expected channel_id chan-1, got %v", decoded["channel_id"])
	}
	if decoded["status"] != "done" {
		t.Errorf("expected status done, got %v", decoded["status"])
	}
	if _, ok := decoded["errors"]; !ok {
		t.Error("expected errors key to always be present")
	}
}

func TestJobEvent_MarshalJSON(t *testing.T) {
	event := JobEvent{
		ID: "1607477697866-0",
		Data: JobMetadata{
			ChannelID: "chan-1",
			JobID:     "job-1",
			Status:    JobStatusRunning,
			Errors:    []string{},
		},
	}

	out, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["id"] != "1607477697866-0" {
		t.Errorf("expected flattened id, got %v", decoded["id"])
	}
	if decoded["job_id"] != "job-1" {
		t.Errorf("expected flattened job_id, got %v", decoded["job_id"])
	}
}

func TestIncrementEventID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"typical stream id", "1607477697866-0", "1607477697866-1"},
		{"last digit bumped", "1607477697866-4", "1607477697866-5"},
		{"nine rolls to ten", "1607477697866-9", "1607477697866-10"},
		{"empty", "", ""},
		{"non-numeric suffix", "abc-x", "abc-x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IncrementEventID(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestMaxEventCount(t *testing.T) {
	if MaxEventCount != 100 {
		t.Errorf("expected poll cap of 100, got %d", MaxEventCount)
	}
}
