package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DatabaseStore = (*DatabaseStore)(nil)

// DatabaseStore implements driven.DatabaseStore using PostgreSQL.
// The encrypted_extra blob is sealed with AES-256-GCM before it hits
// the table and opened again on read. List never touches the blob.
type DatabaseStore struct {
	db        *DB
	encryptor *SecretEncryptor
}

// NewDatabaseStore creates a new PostgreSQL-backed database store.
func NewDatabaseStore(db *DB, encryptor *SecretEncryptor) *DatabaseStore {
	return &DatabaseStore{db: db, encryptor: encryptor}
}

// Save stores or updates a database connection (upsert).
func (s *DatabaseStore) Save(ctx context.Context, database *domain.Database) error {
	var secretBlob []byte
	if database.EncryptedExtra != "" {
		var err error
		secretBlob, err = s.encryptor.EncryptString(database.EncryptedExtra)
		if err != nil {
			return fmt.Errorf("encrypt extra: %w", err)
		}
	}

	query := `
		INSERT INTO databases (
			id, name, engine, uri, extra, secret_blob, allow_dml,
			created_at, updated_at, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			engine = EXCLUDED.engine,
			uri = EXCLUDED.uri,
			extra = EXCLUDED.extra,
			secret_blob = EXCLUDED.secret_blob,
			allow_dml = EXCLUDED.allow_dml,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	if database.CreatedAt.IsZero() {
		database.CreatedAt = now
	}
	database.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, query,
		database.ID,
		database.Name,
		string(database.Engine),
		database.URI,
		database.Extra,
		secretBlob,
		database.AllowDML,
		database.CreatedAt,
		database.UpdatedAt,
		database.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("save database: %w", err)
	}

	return nil
}

// Get retrieves a database by ID with the extra blob decrypted.
func (s *DatabaseStore) Get(ctx context.Context, id string) (*domain.Database, error) {
	return s.getByColumn(ctx, "id", id)
}

// GetByName retrieves a database by its display name.
func (s *DatabaseStore) GetByName(ctx context.Context, name string) (*domain.Database, error) {
	return s.getByColumn(ctx, "name", name)
}

func (s *DatabaseStore) getByColumn(ctx context.Context, column, value string) (*domain.Database, error) {
	query := fmt.Sprintf(`
		SELECT id, name, engine, uri, extra, secret_blob, allow_dml,
			   created_at, updated_at, created_by
		FROM databases
		WHERE %s = $1
	`, column)

	var database domain.Database
	var secretBlob []byte

	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&database.ID,
		&database.Name,
		&database.Engine,
		&database.URI,
		&database.Extra,
		&secretBlob,
		&database.AllowDML,
		&database.CreatedAt,
		&database.UpdatedAt,
		&database.CreatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get database: %w", err)
	}

	if len(secretBlob) > 0 {
		extra, err := s.encryptor.DecryptString(secretBlob)
		if err != nil {
			return nil, fmt.Errorf("decrypt extra: %w", err)
		}
		database.EncryptedExtra = extra
	}

	return &database, nil
}

// List retrieves all databases as summaries (no secrets).
func (s *DatabaseStore) List(ctx context.Context) ([]*domain.DatabaseSummary, error) {
	query := `
		SELECT id, name, engine, allow_dml,
			   secret_blob IS NOT NULL AND LENGTH(secret_blob) > 0,
			   created_at, updated_at
		FROM databases
		ORDER BY name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer rows.Close()

	var summaries []*domain.DatabaseSummary
	for rows.Next() {
		var summary domain.DatabaseSummary
		if err := rows.Scan(
			&summary.ID,
			&summary.Name,
			&summary.Engine,
			&summary.AllowDML,
			&summary.Configured,
			&summary.CreatedAt,
			&summary.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan database: %w", err)
		}
		summaries = append(summaries, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate databases: %w", err)
	}

	return summaries, nil
}

// Delete removes a database connection.
func (s *DatabaseStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM databases WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete database: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}
