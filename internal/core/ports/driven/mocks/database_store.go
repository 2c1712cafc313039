package mocks

import (
	"context"
	"sync"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driven"
)

// Ensure MockDatabaseStore implements DatabaseStore
var _ driven.DatabaseStore = (*MockDatabaseStore)(nil)

// MockDatabaseStore is a mock implementation of DatabaseStore for testing.
// The encrypted extra is stored as-is; encryption belongs to the real
// adapter, not the contract.
type MockDatabaseStore struct {
	mu        sync.RWMutex
	databases map[string]*domain.Database
	byName    map[string]*domain.Database

	// SaveErr forces Save to fail when set
	SaveErr error
}

// NewMockDatabaseStore creates a new MockDatabaseStore
func NewMockDatabaseStore() *MockDatabaseStore {
	return &MockDatabaseStore{
		databases: make(map[string]*domain.Database),
		byName:    make(map[string]*domain.Database),
	}
}

func (m *MockDatabaseStore) Save(ctx context.Context, db *domain.Database) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *db
	m.databases[db.ID] = &cp
	m.byName[db.Name] = &cp
	return nil
}

func (m *MockDatabaseStore) Get(ctx context.Context, id string) (*domain.Database, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	db, ok := m.databases[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *db
	return &cp, nil
}

func (m *MockDatabaseStore) GetByName(ctx context.Context, name string) (*domain.Database, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	db, ok := m.byName[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *db
	return &cp, nil
}

func (m *MockDatabaseStore) List(ctx context.Context) ([]*domain.DatabaseSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.DatabaseSummary
	for _, db := range m.databases {
		result = append(result, db.ToSummary())
	}
	return result, nil
}

func (m *MockDatabaseStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	db, ok := m.databases[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(m.byName, db.Name)
	delete(m.databases, id)
	return nil
}

// Helper methods for testing

func (m *MockDatabaseStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.databases)
}
