package mocks

import (
	"context"
	"sync"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driven"
)

// Ensure MockReportStore implements ReportStore
var _ driven.ReportStore = (*MockReportStore)(nil)

// MockReportStore is an in-memory ReportStore for testing
type MockReportStore struct {
	mu         sync.RWMutex
	schedules  map[string]*domain.ReportSchedule
	executions map[string][]*domain.ReportExecutionLog
}

// NewMockReportStore creates a new MockReportStore
func NewMockReportStore() *MockReportStore {
	return &MockReportStore{
		schedules:  make(map[string]*domain.ReportSchedule),
		executions: make(map[string][]*domain.ReportExecutionLog),
	}
}

func (m *MockReportStore) Save(ctx context.Context, schedule *domain.ReportSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *schedule
	m.schedules[schedule.ID] = &cp
	return nil
}

func (m *MockReportStore) Get(ctx context.Context, id string) (*domain.ReportSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	schedule, ok := m.schedules[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *schedule
	return &cp, nil
}

func (m *MockReportStore) List(ctx context.Context) ([]*domain.ReportSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.ReportSchedule
	for _, schedule := range m.schedules {
		cp := *schedule
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockReportStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.schedules, id)
	delete(m.executions, id)
	return nil
}

func (m *MockReportStore) GetDue(ctx context.Context) ([]*domain.ReportSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.ReportSchedule
	for _, schedule := range m.schedules {
		if schedule.IsDue() {
			cp := *schedule
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockReportStore) LogExecution(ctx context.Context, log *domain.ReportExecutionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions[log.ScheduleID] = append(m.executions[log.ScheduleID], log)
	return nil
}

func (m *MockReportStore) ListExecutions(ctx context.Context, scheduleID string, limit int) ([]*domain.ReportExecutionLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	logs := m.executions[scheduleID]
	if limit > 0 && len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}
	return logs, nil
}
