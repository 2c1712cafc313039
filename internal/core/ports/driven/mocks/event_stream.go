package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driven"
)

// Ensure MockEventStream implements EventStream
var _ driven.EventStream = (*MockEventStream)(nil)

// MockEventStream is an in-memory EventStream for testing. Entry IDs
// are sequential "<n>-0" values per channel.
type MockEventStream struct {
	mu       sync.RWMutex
	channels map[string][]domain.JobEvent
	firehose []domain.JobEvent
	seq      int
}

// NewMockEventStream creates a new MockEventStream
func NewMockEventStream() *MockEventStream {
	return &MockEventStream{
		channels: make(map[string][]domain.JobEvent),
	}
}

func (m *MockEventStream) Publish(ctx context.Context, job *domain.JobMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	event := domain.JobEvent{
		ID:   fmt.Sprintf("%d-0", m.seq),
		Data: *job,
	}
	m.channels[job.ChannelID] = append(m.channels[job.ChannelID], event)
	m.firehose = append(m.firehose, event)
	return nil
}

func (m *MockEventStream) Read(ctx context.Context, channelID, lastEventID string, limit int) ([]domain.JobEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []domain.JobEvent
	for _, event := range m.channels[channelID] {
		if lastEventID != "" && event.ID <= lastEventID {
			continue
		}
		result = append(result, event)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *MockEventStream) Ping(ctx context.Context) error {
	return nil
}

// Helper methods for testing

func (m *MockEventStream) FirehoseLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.firehose)
}

func (m *MockEventStream) ChannelLen(channelID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels[channelID])
}
