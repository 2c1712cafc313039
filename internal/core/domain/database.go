package domain

import (
	"encoding/json"
	"time"
)

// EngineType identifies a database engine connector
type EngineType string

const (
	EnginePostgres  EngineType = "postgresql"
	EngineMySQL     EngineType = "mysql"
	EngineSQLite    EngineType = "sqlite"
	EngineTrino     EngineType = "trino"
	EngineSnowflake EngineType = "snowflake"
	EngineBigQuery  EngineType = "bigquery"
	EngineDrill     EngineType = "drill"
	EngineGSheets   EngineType = "gsheets"
)

// SupportedEngines returns the engines this build can connect to.
func SupportedEngines() []EngineType {
	return []EngineType{
		EnginePostgres,
		EngineMySQL,
		EngineSQLite,
		EngineTrino,
		EngineSnowflake,
		EngineBigQuery,
		EngineDrill,
		EngineGSheets,
	}
}

// EngineInfo provides metadata about an engine connector
type EngineInfo struct {
	Type           EngineType `json:"type"`
	Name           string     `json:"name"`
	Driver         string     `json:"driver"`
	DefaultPort    int        `json:"default_port,omitempty"`
	SupportsOAuth2 bool       `json:"supports_oauth2"`
}

// Database represents a registered analytics database connection
type Database struct {
	ID     string     `json:"id"`
	Name   string     `json:"database_name"`
	Engine EngineType `json:"engine"`

	// URI is the engine connection string (may embed credentials)
	URI string `json:"-"` // Never serialize

	// Extra holds non-sensitive, engine-specific settings as JSON
	Extra string `json:"extra,omitempty"`

	// EncryptedExtra holds provider secrets (including the
	// oauth2_client_info mapping) as JSON. Encrypted at rest,
	// decrypted only inside the service layer.
	EncryptedExtra string `json:"-"` // Never serialize

	AllowDML  bool      `json:"allow_dml"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by"` // User ID
}

// DatabaseSummary provides a safe view without sensitive data
type DatabaseSummary struct {
	ID         string     `json:"id"`
	Name       string     `json:"database_name"`
	Engine     EngineType `json:"engine"`
	AllowDML   bool       `json:"allow_dml"`
	Configured bool       `json:"configured"` // Whether encrypted extra is present
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ToSummary converts a Database to DatabaseSummary
func (d *Database) ToSummary() *DatabaseSummary {
	return &DatabaseSummary{
		ID:         d.ID,
		Name:       d.Name,
		Engine:     d.Engine,
		AllowDML:   d.AllowDML,
		Configured: d.EncryptedExtra != "",
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// ClientInfo extracts the stored OAuth2 client credentials from the
// decrypted extra blob. Absent or unparseable blobs yield the zero
// record.
func (d *Database) ClientInfo() OAuth2ClientInfo {
	return clientInfoFromExtra(d.EncryptedExtra)
}

// MaskEncryptedExtra renders a decrypted extra blob safe for clients:
// the top-level structure is preserved, secret-class values inside the
// oauth2_client_info mapping are replaced with PasswordMask. Anything
// that does not parse as a JSON object is withheld entirely.
func MaskEncryptedExtra(encryptedExtraJSON string) string {
	if encryptedExtraJSON == "" {
		return ""
	}

	var extra map[string]json.RawMessage
	if err := json.Unmarshal([]byte(encryptedExtraJSON), &extra); err != nil {
		return ""
	}

	if raw, ok := extra[EncryptedExtraKey]; ok {
		var info OAuth2ClientInfo
		if err := json.Unmarshal(raw, &info); err == nil {
			masked, err := json.Marshal(info.Masked())
			if err == nil {
				extra[EncryptedExtraKey] = masked
			}
		}
	}

	out, err := json.Marshal(extra)
	if err != nil {
		return ""
	}
	return string(out)
}

// MergeClientInfo writes a credential record into an encrypted-extra
// blob under oauth2_client_info, preserving any sibling keys. A masked
// secret submitted back means "keep the previous secret", so the value
// from prior is restored in that case. An unparseable blob is treated
// as empty.
func MergeClientInfo(encryptedExtraJSON string, info OAuth2ClientInfo, prior OAuth2ClientInfo) (string, error) {
	extra := map[string]json.RawMessage{}
	if encryptedExtraJSON != "" {
		// Best effort: legacy or corrupt blobs start over from empty.
		_ = json.Unmarshal([]byte(encryptedExtraJSON), &extra)
	}

	if info.ClientSecret == PasswordMask {
		info.ClientSecret = prior.ClientSecret
	}

	raw, err := json.Marshal(info)
	if err != nil {
		return "", err
	}
	extra[EncryptedExtraKey] = raw

	out, err := json.Marshal(extra)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// engineMeta holds static metadata about an engine.
type engineMeta struct {
	name           string
	driver         string
	defaultPort    int
	supportsOAuth2 bool
}

// engineMetadata returns static metadata for an engine type.
func engineMetadata(et EngineType) engineMeta {
	switch et {
	case EnginePostgres:
		return engineMeta{name: "PostgreSQL", driver: "postgres", defaultPort: 5432}
	case EngineMySQL:
		return engineMeta{name: "MySQL", driver: "mysql", defaultPort: 3306}
	case EngineSQLite:
		return engineMeta{name: "SQLite", driver: "sqlite"}
	case EngineTrino:
		return engineMeta{name: "Trino", driver: "trino", defaultPort: 8080, supportsOAuth2: true}
	case EngineSnowflake:
		return engineMeta{name: "Snowflake", driver: "snowflake", defaultPort: 443, supportsOAuth2: true}
	case EngineBigQuery:
		return engineMeta{name: "Google BigQuery", driver: "bigquery", supportsOAuth2: true}
	case EngineDrill:
		return engineMeta{name: "Apache Drill", driver: "drill", defaultPort: 8047}
	case EngineGSheets:
		return engineMeta{name: "Google Sheets", driver: "gsheets", supportsOAuth2: true}
	default:
		return engineMeta{name: string(et)}
	}
}

// EngineInfoFor returns connector metadata for an engine type.
func EngineInfoFor(et EngineType) EngineInfo {
	meta := engineMetadata(et)
	return EngineInfo{
		Type:           et,
		Name:           meta.name,
		Driver:         meta.driver,
		DefaultPort:    meta.defaultPort,
		SupportsOAuth2: meta.supportsOAuth2,
	}
}

// IsValidEngine checks if the engine type is supported.
func IsValidEngine(et EngineType) bool {
	for _, e := range SupportedEngines() {
		if e == et {
			return true
		}
	}
	return false
}
