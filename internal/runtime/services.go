package runtime

import (
	"sync"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driven"
)

// Services holds references to optionally wired infrastructure.
// The event stream is only present when Redis is configured; async
// query submission is gated on it. Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks backend choices and capability flags
	config *domain.RuntimeConfig

	// Event stream (nil when async queries are unavailable)
	eventStream driven.EventStream
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EventStream returns the current event stream (may be nil)
func (s *Services) EventStream() driven.EventStream {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventStream
}

// SetEventStream registers the event stream and updates the async
// query capability flag.
func (s *Services) SetEventStream(stream driven.EventStream) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eventStream = stream
	s.config.SetAsyncQueriesAvailable(stream != nil)
}

// AsyncQueriesAvailable returns whether async chart data queries can run
func (s *Services) AsyncQueriesAvailable() bool {
	return s.config.AsyncQueriesAvailable()
}

// Close clears the registry
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eventStream = nil
	s.config.SetAsyncQueriesAvailable(false)
	return nil
}
