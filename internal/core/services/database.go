package services

import (
	"context"
	"strings"
	"time"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driven"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driving"
)

// Ensure databaseService implements DatabaseService
var _ driving.DatabaseService = (*databaseService)(nil)

// databaseService implements the DatabaseService interface.
// It manages registered database connections and their OAuth2 client
// credentials. Secrets never leave this layer unmasked.
type databaseService struct {
	databaseStore driven.DatabaseStore
}

// NewDatabaseService creates a new DatabaseService.
func NewDatabaseService(databaseStore driven.DatabaseStore) driving.DatabaseService {
	return &databaseService{
		databaseStore: databaseStore,
	}
}

// Create registers a new database connection.
func (s *databaseService) Create(ctx context.Context, req driving.CreateDatabaseRequest) (*domain.DatabaseSummary, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.URI == "" {
		return nil, domain.ErrInvalidInput
	}
	if !domain.IsValidEngine(req.Engine) {
		return nil, domain.ErrUnknownEngine
	}

	// Names are unique across the deployment
	if existing, _ := s.databaseStore.GetByName(ctx, name); existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	now := time.Now()
	db := &domain.Database{
		ID:             generateID(),
		Name:           name,
		Engine:         req.Engine,
		URI:            req.URI,
		Extra:          req.Extra,
		EncryptedExtra: req.EncryptedExtra,
		AllowDML:       req.AllowDML,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.databaseStore.Save(ctx, db); err != nil {
		return nil, err
	}

	return db.ToSummary(), nil
}

// Get retrieves a database with masked secrets.
func (s *databaseService) Get(ctx context.Context, id string) (*driving.DatabaseResponse, error) {
	db, err := s.databaseStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return &driving.DatabaseResponse{
		DatabaseSummary:      db.ToSummary(),
		Extra:                db.Extra,
		MaskedEncryptedExtra: domain.MaskEncryptedExtra(db.EncryptedExtra),
	}, nil
}

// List returns all registered databases (no secrets).
func (s *databaseService) List(ctx context.Context) ([]*domain.DatabaseSummary, error) {
	return s.databaseStore.List(ctx)
}

// Update modifies a database connection.
func (s *databaseService) Update(ctx context.Context, id string, req driving.UpdateDatabaseRequest) (*driving.DatabaseResponse, error) {
	db, err := s.databaseStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidInput
		}
		db.Name = name
	}
	if req.URI != nil {
		db.URI = *req.URI
	}
	if req.Extra != nil {
		db.Extra = *req.Extra
	}
	if req.EncryptedExtra != nil {
		db.EncryptedExtra = *req.EncryptedExtra
	}
	if req.AllowDML != nil {
		db.AllowDML = *req.AllowDML
	}
	db.UpdatedAt = time.Now()

	if err := s.databaseStore.Save(ctx, db); err != nil {
		return nil, err
	}

	return &driving.DatabaseResponse{
		DatabaseSummary:      db.ToSummary(),
		Extra:                db.Extra,
		MaskedEncryptedExtra: domain.MaskEncryptedExtra(db.EncryptedExtra),
	}, nil
}

// Delete removes a database connection.
func (s *databaseService) Delete(ctx context.Context, id string) error {
	return s.databaseStore.Delete(ctx, id)
}

// GetClientInfo returns the stored OAuth2 client credentials for a
// database with the secret masked.
func (s *databaseService) GetClientInfo(ctx context.Context, id string) (*driving.ClientInfoResponse, error) {
	db, err := s.databaseStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return &driving.ClientInfoResponse{
		DatabaseID: db.ID,
		ClientInfo: db.ClientInfo().Masked(),
	}, nil
}

// SaveClientInfo stores OAuth2 client credentials for a database.
// A masked secret in the request means "keep the stored secret";
// sibling keys in the encrypted extra blob survive the write.
func (s *databaseService) SaveClientInfo(ctx context.Context, id string, info domain.OAuth2ClientInfo) (*driving.ClientInfoResponse, error) {
	db, err := s.databaseStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	merged, err := domain.MergeClientInfo(db.EncryptedExtra, info, db.ClientInfo())
	if err != nil {
		return nil, err
	}

	db.EncryptedExtra = merged
	db.UpdatedAt = time.Now()

	if err := s.databaseStore.Save(ctx, db); err != nil {
		return nil, err
	}

	return &driving.ClientInfoResponse{
		DatabaseID: db.ID,
		ClientInfo: db.ClientInfo().Masked(),
	}, nil
}

// ClientInfoFormSchema returns the rendering contract for the OAuth2
// client credential form, hydrated with the database's masked record.
func (s *databaseService) ClientInfoFormSchema(ctx context.Context, id string) (*driving.ClientInfoFormResponse, error) {
	db, err := s.databaseStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return &driving.ClientInfoFormResponse{
		DatabaseID: db.ID,
		Section:    domain.ClientInfoFormSchema(),
		Initial:    db.ClientInfo().Masked(),
	}, nil
}

// ListEngines returns metadata for all supported database engines.
func (s *databaseService) ListEngines(ctx context.Context) ([]domain.EngineInfo, error) {
	engines := domain.SupportedEngines()
	infos := make([]domain.EngineInfo, 0, len(engines))
	for _, engine := range engines {
		infos = append(infos, domain.EngineInfoFor(engine))
	}
	return infos, nil
}
