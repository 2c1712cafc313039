package domain

import "testing"

func TestClientInfoFields(t *testing.T) {
	fields := ClientInfoFields()

	if len(fields) != 5 {
		t.Fatalf("expected 5 fields, got %d", len(fields))
	}

	expected := []ClientInfoField{
		FieldClientID,
		FieldClientSecret,
		FieldAuthorizationRequestURI,
		FieldTokenRequestURI,
		FieldScope,
	}
	for i, f := range expected {
		if fields[i] != f {
			t.Errorf("field %d: expected %s, got %s", i, f, fields[i])
		}
	}
}

func TestOAuth2ClientInfo_Field(t *testing.T) {
	info := OAuth2ClientInfo{
		ClientID:                "my-id",
		ClientSecret:            "my-secret",
		AuthorizationRequestURI: "https://auth.example.com/authorize",
		TokenRequestURI:         "https://auth.example.com/token",
		Scope:                   "read write",
	}

	tests := []struct {
		field    ClientInfoField
		expected string
	}{
		{FieldClientID, "my-id"},
		{FieldClientSecret, "my-secret"},
		{FieldAuthorizationRequestURI, "https://auth.example.com/authorize"},
		{FieldTokenRequestURI, "https://auth.example.com/token"},
		{FieldScope, "read write"},
		{ClientInfoField("unknown"), ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			if got := info.Field(tt.field); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestOAuth2ClientInfo_WithField(t *testing.T) {
	original := OAuth2ClientInfo{ClientID: "before"}

	updated := original.WithField(FieldClientID, "after")

	if updated.ClientID != "after" {
		t.Errorf("expected updated ClientID 'after', got %q", updated.ClientID)
	}
	if original.ClientID != "before" {
		t.Errorf("expected original to be unchanged, got %q", original.ClientID)
	}
}

func TestOAuth2ClientInfo_WithField_OnlyNamedField(t *testing.T) {
	info := OAuth2ClientInfo{
		ClientID: "id",
		Scope:    "scope",
	}

	updated := info.WithField(FieldClientSecret, "new-secret")

	if updated.ClientSecret != "new-secret" {
		t.Errorf("expected secret 'new-secret', got %q", updated.ClientSecret)
	}
	if updated.ClientID != "id" || updated.Scope != "scope" {
		t.Error("expected other fields to be preserved")
	}
}

func TestOAuth2ClientInfo_WithField_UnknownFieldIsNoop(t *testing.T) {
	info := OAuth2ClientInfo{ClientID: "id"}

	updated := info.WithField(ClientInfoField("bogus"), "value")

	if updated != info {
		t.Error("expected unknown field edit to leave the record unchanged")
	}
}

func TestOAuth2ClientInfo_IsZero(t *testing.T) {
	if !(OAuth2ClientInfo{}).IsZero() {
		t.Error("expected empty record to be zero")
	}
	if (OAuth2ClientInfo{Scope: "read"}).IsZero() {
		t.Error("expected record with scope to be non-zero")
	}
}

func TestOAuth2ClientInfo_Masked(t *testing.T) {
	info := OAuth2ClientInfo{
		ClientID:     "id",
		ClientSecret: "super-secret",
	}

	masked := info.Masked()

	if masked.ClientSecret != PasswordMask {
		t.Errorf("expected masked secret %q, got %q", PasswordMask, masked.ClientSecret)
	}
	if masked.ClientID != "id" {
		t.Error("expected non-secret fields to be preserved")
	}
	if info.ClientSecret != "super-secret" {
		t.Error("expected original to be unchanged")
	}
}

func TestOAuth2ClientInfo_Masked_EmptySecretStaysEmpty(t *testing.T) {
	masked := OAuth2ClientInfo{ClientID: "id"}.Masked()

	if masked.ClientSecret != "" {
		t.Errorf("expected empty secret to stay empty, got %q", masked.ClientSecret)
	}
}

func TestResolveClientInfo(t *testing.T) {
	tests := []struct {
		name     string
		blob     string
		defaults OAuth2ClientInfo
		expected OAuth2ClientInfo
	}{
		{
			name:     "empty blob no defaults",
			blob:     "",
			expected: OAuth2ClientInfo{},
		},
		{
			name: "blob wins over defaults",
			blob: `{"oauth2_client_info":{"id":"stored-id","secret":"stored-secret"}}`,
			defaults: OAuth2ClientInfo{
				ClientID: "default-id",
				Scope:    "default-scope",
			},
			expected: OAuth2ClientInfo{
				ClientID:     "stored-id",
				ClientSecret: "stored-secret",
				Scope:        "default-scope",
			},
		},
		{
			name: "defaults fill absent fields",
			blob: `{"oauth2_client_info":{"id":"abc"}}`,
			defaults: OAuth2ClientInfo{
				AuthorizationRequestURI: "https://default.example.com/auth",
				TokenRequestURI:         "https://default.example.com/token",
			},
			expected: OAuth2ClientInfo{
				ClientID:                "abc",
				AuthorizationRequestURI: "https://default.example.com/auth",
				TokenRequestURI:         "https://default.example.com/token",
			},
		},
		{
			name:     "malformed blob falls back to defaults",
			blob:     `{not json`,
			defaults: OAuth2ClientInfo{ClientID: "fallback"},
			expected: OAuth2ClientInfo{ClientID: "fallback"},
		},
		{
			name:     "blob without client info key",
			blob:     `{"other_setting":true}`,
			defaults: OAuth2ClientInfo{Scope: "openid"},
			expected: OAuth2ClientInfo{Scope: "openid"},
		},
		{
			name:     "empty string in blob yields default",
			blob:     `{"oauth2_client_info":{"id":"","scope":"stored"}}`,
			defaults: OAuth2ClientInfo{ClientID: "default-id"},
			expected: OAuth2ClientInfo{ClientID: "default-id", Scope: "stored"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveClientInfo(tt.blob, tt.defaults)
			if got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestClientInfoFromExtra_ParseFailureIsSilent(t *testing.T) {
	// Legacy or hand-edited configuration must not break hydration.
	for _, blob := range []string{"", "null", "[]", `"string"`, "{broken"} {
		got := clientInfoFromExtra(blob)
		if !got.IsZero() {
			t.Errorf("blob %q: expected zero record, got %+v", blob, got)
		}
	}
}
