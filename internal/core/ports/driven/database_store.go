package driven

import (
	"context"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
)

// DatabaseStore persists registered database connections (PostgreSQL).
// The encrypted extra blob is sealed on Save and opened on Get; list
// operations never touch secrets.
type DatabaseStore interface {
	// Save stores or updates a database (encrypts the extra blob)
	Save(ctx context.Context, db *domain.Database) error

	// Get retrieves a database by ID (decrypts the extra blob)
	Get(ctx context.Context, id string) (*domain.Database, error)

	// GetByName retrieves a database by its display name
	GetByName(ctx context.Context, name string) (*domain.Database, error)

	// List retrieves all databases (summaries only, no secrets)
	List(ctx context.Context) ([]*domain.DatabaseSummary, error)

	// Delete removes a database
	Delete(ctx context.Context, id string) error
}
