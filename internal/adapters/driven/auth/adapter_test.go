package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	// MinCost keeps bcrypt fast in tests
	adapter, err := NewAdapterWithCost(strings.Repeat("s", MinSecretLength), 4)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func TestNewAdapter_ShortSecret(t *testing.T) {
	if _, err := NewAdapter("too-short"); err == nil {
		t.Error("expected an error for a short secret")
	}
}

func TestAdapter_PasswordRoundTrip(t *testing.T) {
	adapter := newTestAdapter(t)

	hash, err := adapter.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "hunter2" {
		t.Error("expected hash to differ from password")
	}
	if !adapter.VerifyPassword("hunter2", hash) {
		t.Error("expected password to verify")
	}
	if adapter.VerifyPassword("wrong", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestAdapter_TokenRoundTrip(t *testing.T) {
	adapter := newTestAdapter(t)

	now := time.Now()
	claims := &domain.TokenClaims{
		UserID:    "user-1",
		Email:     "ana@example.com",
		Role:      domain.RoleAnalyst,
		SessionID: "sess-1",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}

	token, err := adapter.GenerateToken(claims)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	parsed, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if parsed.UserID != claims.UserID {
		t.Errorf("expected user %s, got %s", claims.UserID, parsed.UserID)
	}
	if parsed.Email != claims.Email {
		t.Errorf("expected email %s, got %s", claims.Email, parsed.Email)
	}
	if parsed.Role != claims.Role {
		t.Errorf("expected role %s, got %s", claims.Role, parsed.Role)
	}
	if parsed.SessionID != claims.SessionID {
		t.Errorf("expected session %s, got %s", claims.SessionID, parsed.SessionID)
	}
}

func TestAdapter_ParseToken_Expired(t *testing.T) {
	adapter := newTestAdapter(t)

	claims := &domain.TokenClaims{
		UserID:    "user-1",
		SessionID: "sess-1",
		IssuedAt:  time.Now().Add(-2 * time.Hour).Unix(),
		ExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}

	token, err := adapter.GenerateToken(claims)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := adapter.ParseToken(token); err == nil {
		t.Error("expected an error for an expired token")
	}
}

func TestAdapter_ParseToken_WrongSecret(t *testing.T) {
	adapter := newTestAdapter(t)
	other, _ := NewAdapterWithCost(strings.Repeat("x", MinSecretLength), 4)

	token, err := adapter.GenerateToken(&domain.TokenClaims{
		UserID:    "user-1",
		SessionID: "sess-1",
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := other.ParseToken(token); err == nil {
		t.Error("expected an error for a token signed with another secret")
	}
}

func TestAdapter_ParseToken_Garbage(t *testing.T) {
	adapter := newTestAdapter(t)

	if _, err := adapter.ParseToken("not.a.jwt"); err == nil {
		t.Error("expected an error for garbage input")
	}
}

func TestAdapter_ChannelTokenRoundTrip(t *testing.T) {
	adapter := newTestAdapter(t)

	token, err := adapter.GenerateChannelToken("chan-1", "user-1")
	if err != nil {
		t.Fatalf("generate channel token: %v", err)
	}

	channelID, userID, err := adapter.ParseChannelToken(token)
	if err != nil {
		t.Fatalf("parse channel token: %v", err)
	}
	if channelID != "chan-1" {
		t.Errorf("expected channel chan-1, got %s", channelID)
	}
	if userID != "user-1" {
		t.Errorf("expected user user-1, got %s", userID)
	}
}

func TestAdapter_ParseChannelToken_Invalid(t *testing.T) {
	adapter := newTestAdapter(t)

	if _, _, err := adapter.ParseChannelToken("garbage"); err != domain.ErrChannelTokenInvalid {
		t.Errorf("expected ErrChannelTokenInvalid, got %v", err)
	}

	// A session token is not a channel token
	sessionToken, _ := adapter.GenerateToken(&domain.TokenClaims{
		UserID:    "user-1",
		SessionID: "sess-1",
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	if _, _, err := adapter.ParseChannelToken(sessionToken); err != domain.ErrChannelTokenInvalid {
		t.Errorf("expected ErrChannelTokenInvalid for a session token, got %v", err)
	}
}

func TestAdapter_ParseChannelToken_WrongSecret(t *testing.T) {
	adapter := newTestAdapter(t)
	other, _ := NewAdapterWithCost(strings.Repeat("x", MinSecretLength), 4)

	token, err := adapter.GenerateChannelToken("chan-1", "user-1")
	if err != nil {
		t.Fatalf("generate channel token: %v", err)
	}
	if _, _, err := other.ParseChannelToken(token); err != domain.ErrChannelTokenInvalid {
		t.Errorf("expected ErrChannelTokenInvalid, got %v", err)
	}
}
