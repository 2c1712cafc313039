package domain

import "sync"

// RuntimeConfig tracks which backends are wired at runtime.
// Backend choices are made at startup; the async query flag follows
// whatever event stream is currently registered.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	SessionBackend string // "redis" or "postgres"
	QueueBackend   string // "redis" or "postgres"

	// Dynamic capability flags
	asyncQueriesAvailable bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(sessionBackend, queueBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		SessionBackend: sessionBackend,
		QueueBackend:   queueBackend,
	}
}

// AsyncQueriesAvailable returns whether async chart data queries can run
func (c *RuntimeConfig) AsyncQueriesAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.asyncQueriesAvailable
}

// SetAsyncQueriesAvailable updates the async query availability flag
func (c *RuntimeConfig) SetAsyncQueriesAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asyncQueriesAvailable = available
}
