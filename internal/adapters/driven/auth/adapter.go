package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driven"
)

// Ensure Adapter implements AuthAdapter
var _ driven.AuthAdapter = (*Adapter)(nil)

// MinSecretLength is the minimum JWT secret size. Channel tokens ride
// in cookies for days, so short secrets are refused outright.
const MinSecretLength = 32

// jwtClaims wraps domain.TokenClaims for JWT compatibility
type jwtClaims struct {
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	SessionID string      `json:"session_id"`
	jwt.RegisteredClaims
}

// channelClaims is the payload of an async event channel token
type channelClaims struct {
	Channel string `json:"channel"`
	jwt.RegisteredClaims
}

// Adapter handles authentication operations using bcrypt and JWT
type Adapter struct {
	jwtSecret       []byte
	bcryptCost      int
	channelTokenTTL time.Duration
}

// NewAdapter creates a new auth adapter with the given JWT secret.
// The secret must be at least MinSecretLength bytes.
func NewAdapter(jwtSecret string) (*Adapter, error) {
	if len(jwtSecret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
	}
	return &Adapter{
		jwtSecret:       []byte(jwtSecret),
		bcryptCost:      bcrypt.DefaultCost,
		channelTokenTTL: 7 * 24 * time.Hour,
	}, nil
}

// NewAdapterWithCost creates a new auth adapter with custom bcrypt cost
func NewAdapterWithCost(jwtSecret string, bcryptCost int) (*Adapter, error) {
	a, err := NewAdapter(jwtSecret)
	if err != nil {
		return nil, err
	}
	a.bcryptCost = bcryptCost
	return a, nil
}

// HashPassword generates a bcrypt hash from a plaintext password
func (a *Adapter) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks if a password matches a bcrypt hash
func (a *Adapter) VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateToken creates a signed JWT from domain claims
func (a *Adapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	jc := jwtClaims{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)
	return token.SignedString(a.jwtSecret)
}

// ParseToken validates a JWT and extracts domain claims
func (a *Adapter) ParseToken(tokenString string) (*domain.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, a.keyFunc)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*jwtClaims); ok && token.Valid {
		return &domain.TokenClaims{
			UserID:    claims.UserID,
			Email:     claims.Email,
			Role:      claims.Role,
			SessionID: claims.SessionID,
			IssuedAt:  claims.IssuedAt.Unix(),
			ExpiresAt: claims.ExpiresAt.Unix(),
		}, nil
	}

	return nil, fmt.Errorf("invalid token claims")
}

// GenerateChannelToken creates a signed JWT binding a browser to its
// async event channel. The subject carries the user the token was
// minted for.
func (a *Adapter) GenerateChannelToken(channelID, userID string) (string, error) {
	now := time.Now()
	claims := channelClaims{
		Channel: channelID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.channelTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// ParseChannelToken validates a channel token and returns its channel
// and user IDs.
func (a *Adapter) ParseChannelToken(tokenString string) (string, string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &channelClaims{}, a.keyFunc)
	if err != nil {
		return "", "", domain.ErrChannelTokenInvalid
	}

	claims, ok := token.Claims.(*channelClaims)
	if !ok || !token.Valid || claims.Channel == "" {
		return "", "", domain.ErrChannelTokenInvalid
	}

	return claims.Channel, claims.Subject, nil
}

func (a *Adapter) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return a.jwtSecret, nil
}
