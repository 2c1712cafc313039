package domain

import "encoding/json"

// EncryptedExtraKey is the key under which OAuth2 client credentials
// are nested inside a database's encrypted extra mapping.
const EncryptedExtraKey = "oauth2_client_info"

// PasswordMask replaces secret-class values in any payload that leaves
// the service layer. Clients submit the mask back unchanged to mean
// "keep the stored secret".
const PasswordMask = "XXXXXXXXXX"

// ClientInfoField identifies one of the five OAuth2 client credential
// fields. Edits are dispatched on this type so an edit against an
// unknown field cannot be expressed.
type ClientInfoField string

const (
	FieldClientID                ClientInfoField = "id"
	FieldClientSecret            ClientInfoField = "secret"
	FieldAuthorizationRequestURI ClientInfoField = "authorization_request_uri"
	FieldTokenRequestURI         ClientInfoField = "token_request_uri"
	FieldScope                   ClientInfoField = "scope"
)

// ClientInfoFields returns the five fields in display order.
func ClientInfoFields() []ClientInfoField {
	return []ClientInfoField{
		FieldClientID,
		FieldClientSecret,
		FieldAuthorizationRequestURI,
		FieldTokenRequestURI,
		FieldScope,
	}
}

// OAuth2ClientInfo is the credential bundle needed to run an
// authorization-code exchange against a data source's authorization
// server. It is a total record: every field is always present and
// defaults to the empty string.
type OAuth2ClientInfo struct {
	ClientID                string `json:"id"`
	ClientSecret            string `json:"secret"`
	AuthorizationRequestURI string `json:"authorization_request_uri"`
	TokenRequestURI         string `json:"token_request_uri"`
	Scope                   string `json:"scope"`
}

// Field returns the value of the named field.
func (c OAuth2ClientInfo) Field(f ClientInfoField) string {
	switch f {
	case FieldClientID:
		return c.ClientID
	case FieldClientSecret:
		return c.ClientSecret
	case FieldAuthorizationRequestURI:
		return c.AuthorizationRequestURI
	case FieldTokenRequestURI:
		return c.TokenRequestURI
	case FieldScope:
		return c.Scope
	}
	return ""
}

// WithField returns a copy of the record with only the named field
// replaced. The receiver is not modified.
func (c OAuth2ClientInfo) WithField(f ClientInfoField, value string) OAuth2ClientInfo {
	switch f {
	case FieldClientID:
		c.ClientID = value
	case FieldClientSecret:
		c.ClientSecret = value
	case FieldAuthorizationRequestURI:
		c.AuthorizationRequestURI = value
	case FieldTokenRequestURI:
		c.TokenRequestURI = value
	case FieldScope:
		c.Scope = value
	}
	return c
}

// IsZero reports whether every field is empty.
func (c OAuth2ClientInfo) IsZero() bool {
	return c == OAuth2ClientInfo{}
}

// Masked returns a copy with the client secret replaced by PasswordMask.
// An empty secret stays empty so consumers can tell "unset" from "set".
func (c OAuth2ClientInfo) Masked() OAuth2ClientInfo {
	if c.ClientSecret != "" {
		c.ClientSecret = PasswordMask
	}
	return c
}

// ResolveClientInfo builds the initial credential record for a
// database. Per field, the value found in the encrypted-extra blob
// under "oauth2_client_info" wins if present and non-empty; otherwise
// the caller-supplied default applies; otherwise the field is empty.
//
// The blob is previously saved, possibly legacy configuration, so
// hydration is best effort: an absent, empty, or unparseable blob is
// treated as an empty mapping and never surfaces an error.
func ResolveClientInfo(encryptedExtraJSON string, defaults OAuth2ClientInfo) OAuth2ClientInfo {
	stored := clientInfoFromExtra(encryptedExtraJSON)

	var resolved OAuth2ClientInfo
	for _, f := range ClientInfoFields() {
		if v := stored.Field(f); v != "" {
			resolved = resolved.WithField(f, v)
		} else {
			resolved = resolved.WithField(f, defaults.Field(f))
		}
	}
	return resolved
}

// clientInfoFromExtra extracts the oauth2_client_info sub-mapping from
// a serialized encrypted-extra blob. Parse failures yield the zero
// record.
func clientInfoFromExtra(encryptedExtraJSON string) OAuth2ClientInfo {
	if encryptedExtraJSON == "" {
		return OAuth2ClientInfo{}
	}

	var extra struct {
		ClientInfo OAuth2ClientInfo `json:"oauth2_client_info"`
	}
	if err := json.Unmarshal([]byte(encryptedExtraJSON), &extra); err != nil {
		return OAuth2ClientInfo{}
	}
	return extra.ClientInfo
}
