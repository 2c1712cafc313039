package driven

import "github.com/quarry-bi/quarry-core/internal/core/domain"

// AuthAdapter handles authentication cryptographic operations.
// This does NOT handle storage - use SessionStore for session persistence.
type AuthAdapter interface {
	// Password operations
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) bool

	// Token operations
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)

	// Channel token operations. A channel token binds a browser to its
	// async event stream; it is issued as a cookie and carries only the
	// channel ID and the user it was minted for.
	GenerateChannelToken(channelID, userID string) (string, error)
	ParseChannelToken(token string) (channelID string, userID string, err error)
}
