package driving

import (
	"context"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
)

// DatabaseService manages registered database connections and their
// OAuth2 client credentials. This is an admin-only service.
type DatabaseService interface {
	// Create registers a new database connection
	Create(ctx context.Context, req CreateDatabaseRequest) (*domain.DatabaseSummary, error)

	// Get retrieves a database with masked secrets
	Get(ctx context.Context, id string) (*DatabaseResponse, error)

	// List returns all registered databases (no secrets)
	List(ctx context.Context) ([]*domain.DatabaseSummary, error)

	// Update modifies a database connection
	Update(ctx context.Context, id string, req UpdateDatabaseRequest) (*DatabaseResponse, error)

	// Delete removes a database connection
	Delete(ctx context.Context, id string) error

	// GetClientInfo returns the stored OAuth2 client credentials for a
	// database with the secret masked.
	GetClientInfo(ctx context.Context, id string) (*ClientInfoResponse, error)

	// SaveClientInfo stores OAuth2 client credentials for a database.
	// A masked secret in the request means "keep the stored secret".
	// Sibling keys in the encrypted extra blob are preserved.
	SaveClientInfo(ctx context.Context, id string, info domain.OAuth2ClientInfo) (*ClientInfoResponse, error)

	// ClientInfoFormSchema returns the rendering contract for the OAuth2
	// client credential form of the given database.
	ClientInfoFormSchema(ctx context.Context, id string) (*ClientInfoFormResponse, error)

	// ListEngines returns metadata for all supported database engines
	ListEngines(ctx context.Context) ([]domain.EngineInfo, error)
}

// CreateDatabaseRequest represents a request to register a database
type CreateDatabaseRequest struct {
	Name           string            `json:"database_name"`
	Engine         domain.EngineType `json:"engine"`
	URI            string            `json:"uri"`
	Extra          string            `json:"extra,omitempty"`
	EncryptedExtra string            `json:"encrypted_extra,omitempty"`
	AllowDML       bool              `json:"allow_dml"`
}

// UpdateDatabaseRequest represents a request to update a database.
// Nil fields are left unchanged.
type UpdateDatabaseRequest struct {
	Name           *string `json:"database_name,omitempty"`
	URI            *string `json:"uri,omitempty"`
	Extra          *string `json:"extra,omitempty"`
	EncryptedExtra *string `json:"encrypted_extra,omitempty"`
	AllowDML       *bool   `json:"allow_dml,omitempty"`
}

// DatabaseResponse is a database with its encrypted extra masked for
// client consumption.
type DatabaseResponse struct {
	*domain.DatabaseSummary
	Extra                string `json:"extra,omitempty"`
	MaskedEncryptedExtra string `json:"masked_encrypted_extra,omitempty"`
}

// ClientInfoResponse carries a masked credential record for one database
type ClientInfoResponse struct {
	DatabaseID string                  `json:"database_id"`
	ClientInfo domain.OAuth2ClientInfo `json:"oauth2_client_info"`
}

// ClientInfoFormResponse bundles the form schema with the masked
// initial record the form should be hydrated with.
type ClientInfoFormResponse struct {
	DatabaseID string                  `json:"database_id"`
	Section    domain.FormSectionSpec  `json:"section"`
	Initial    domain.OAuth2ClientInfo `json:"initial"`
}
