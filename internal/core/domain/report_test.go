package domain

import (
	"testing"
	"time"
)

func TestNewReportSchedule(t *testing.T) {
	schedule := NewReportSchedule("Daily revenue", "db-1", "SELECT 1", time.Hour)

	if schedule.ID == "" {
		t.Error("expected an ID")
	}
	if schedule.Name != "Daily revenue" {
		t.Errorf("expected name 'Daily revenue', got %s", schedule.Name)
	}
	if schedule.DatabaseID != "db-1" {
		t.Errorf("expected database db-1, got %s", schedule.DatabaseID)
	}
	if !schedule.Enabled {
		t.Error("expected new schedules to be enabled")
	}
	if schedule.WorkingTimeout != 10*time.Minute {
		t.Errorf("expected default working timeout 10m, got %v", schedule.WorkingTimeout)
	}
	if schedule.NextRun.IsZero() {
		t.Error("expected NextRun to be set")
	}
}

func TestReportSchedule_IsDue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name     string
		enabled  bool
		nextRun  time.Time
		expected bool
	}{
		{"enabled and due", true, past, true},
		{"enabled not due", true, future, false},
		{"disabled and due", false, past, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule := &ReportSchedule{Enabled: tt.enabled, NextRun: tt.nextRun}
			if got := schedule.IsDue(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestReportSchedule_IsWorking(t *testing.T) {
	recent := time.Now().Add(-time.Minute)
	stale := time.Now().Add(-time.Hour)

	tests := []struct {
		name     string
		state    ReportState
		lastRun  *time.Time
		expected bool
	}{
		{"working within timeout", ReportStateWorking, &recent, true},
		{"working past timeout", ReportStateWorking, &stale, false},
		{"success state", ReportStateSuccess, &recent, false},
		{"working without last run", ReportStateWorking, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule := &ReportSchedule{
				LastState:      tt.state,
				LastRun:        tt.lastRun,
				WorkingTimeout: 10 * time.Minute,
			}
			if got := schedule.IsWorking(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestReportSchedule_MarkWorking(t *testing.T) {
	schedule := NewReportSchedule("r", "db-1", "SELECT 1", time.Hour)
	before := time.Now()

	schedule.MarkWorking()

	if schedule.LastState != ReportStateWorking {
		t.Errorf("expected state working, got %s", schedule.LastState)
	}
	if schedule.LastRun == nil {
		t.Fatal("expected LastRun to be set")
	}
	if schedule.NextRun.Before(before.Add(time.Hour).Add(-time.Second)) {
		t.Errorf("expected NextRun about an hour out, got %v", schedule.NextRun)
	}
}

func TestReportSchedule_MarkSuccessClearsError(t *testing.T) {
	schedule := NewReportSchedule("r", "db-1", "SELECT 1", time.Hour)
	schedule.MarkError("boom")

	if schedule.LastState != ReportStateError || schedule.LastError != "boom" {
		t.Fatalf("expected error state, got %s / %q", schedule.LastState, schedule.LastError)
	}

	schedule.MarkSuccess()

	if schedule.LastState != ReportStateSuccess {
		t.Errorf("expected state success, got %s", schedule.LastState)
	}
	if schedule.LastError != "" {
		t.Errorf("expected error cleared, got %q", schedule.LastError)
	}
}
