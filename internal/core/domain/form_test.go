package domain

import (
	"encoding/json"
	"testing"
)

func TestNewClientInfoForm_HydratesFromBlob(t *testing.T) {
	blob := `{"oauth2_client_info":{"id":"abc","secret":"s3cret","scope":"read"}}`

	form := NewClientInfoForm(blob, OAuth2ClientInfo{}, nil)

	record := form.Record()
	if record.ClientID != "abc" {
		t.Errorf("expected client ID 'abc', got %q", record.ClientID)
	}
	if record.ClientSecret != "s3cret" {
		t.Errorf("expected secret 's3cret', got %q", record.ClientSecret)
	}
	if record.Scope != "read" {
		t.Errorf("expected scope 'read', got %q", record.Scope)
	}
}

func TestNewClientInfoForm_MalformedBlobUsesDefaults(t *testing.T) {
	defaults := OAuth2ClientInfo{
		AuthorizationRequestURI: "https://idp.example.com/authorize",
	}

	form := NewClientInfoForm("{{{", defaults, nil)

	if form.Record() != defaults {
		t.Errorf("expected defaults %+v, got %+v", defaults, form.Record())
	}
}

func TestClientInfoForm_Edit(t *testing.T) {
	var changes []ClientInfoChange
	form := NewClientInfoForm("", OAuth2ClientInfo{}, func(c ClientInfoChange) {
		changes = append(changes, c)
	})

	form.Edit(FieldClientID, "new-id")

	if form.Record().ClientID != "new-id" {
		t.Errorf("expected record to hold 'new-id', got %q", form.Record().ClientID)
	}
	if len(changes) != 1 {
		t.Fatalf("expected exactly 1 change, got %d", len(changes))
	}
	if changes[0].Target.Type != "object" {
		t.Errorf("expected target type 'object', got %q", changes[0].Target.Type)
	}
	if changes[0].Target.Name != EncryptedExtraKey {
		t.Errorf("expected target name %q, got %q", EncryptedExtraKey, changes[0].Target.Name)
	}
	if changes[0].Target.Value.ClientID != "new-id" {
		t.Error("expected change to carry the updated record")
	}
}

func TestClientInfoForm_EditCarriesWholeRecord(t *testing.T) {
	blob := `{"oauth2_client_info":{"id":"abc"}}`

	var last ClientInfoChange
	form := NewClientInfoForm(blob, OAuth2ClientInfo{}, func(c ClientInfoChange) {
		last = c
	})

	form.Edit(FieldClientSecret, "shh")

	want := OAuth2ClientInfo{ClientID: "abc", ClientSecret: "shh"}
	if last.Target.Value != want {
		t.Errorf("expected change value %+v, got %+v", want, last.Target.Value)
	}
	if form.Record() != want {
		t.Errorf("expected record %+v, got %+v", want, form.Record())
	}
}

func TestClientInfoForm_EditNilCallback(t *testing.T) {
	form := NewClientInfoForm("", OAuth2ClientInfo{}, nil)

	// Must not panic; the edit still applies.
	form.Edit(FieldScope, "openid profile")

	if form.Record().Scope != "openid profile" {
		t.Errorf("expected scope to be updated, got %q", form.Record().Scope)
	}
}

func TestClientInfoForm_EditEmptyText(t *testing.T) {
	blob := `{"oauth2_client_info":{"id":"abc","scope":"read"}}`
	form := NewClientInfoForm(blob, OAuth2ClientInfo{}, nil)

	form.Edit(FieldScope, "")

	if form.Record().Scope != "" {
		t.Errorf("expected cleared scope, got %q", form.Record().Scope)
	}
	if form.Record().ClientID != "abc" {
		t.Error("expected other fields to be preserved")
	}
}

func TestClientInfoChange_WireShape(t *testing.T) {
	var got ClientInfoChange
	form := NewClientInfoForm("", OAuth2ClientInfo{}, func(c ClientInfoChange) {
		got = c
	})

	form.Edit(FieldClientID, "abc")
	form.Edit(FieldClientSecret, "shh")

	out, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal change: %v", err)
	}

	expected := `{"target":{"type":"object","name":"oauth2_client_info","value":{"id":"abc","secret":"shh","authorization_request_uri":"","token_request_uri":"","scope":""}}}`
	if string(out) != expected {
		t.Errorf("wire shape mismatch:\nexpected %s\ngot      %s", expected, out)
	}
}

func TestClientInfoForm_SequentialEdits(t *testing.T) {
	var count int
	form := NewClientInfoForm("", OAuth2ClientInfo{}, func(ClientInfoChange) {
		count++
	})

	form.Edit(FieldClientID, "a")
	form.Edit(FieldClientID, "ab")
	form.Edit(FieldTokenRequestURI, "https://t")

	if count != 3 {
		t.Errorf("expected 3 notifications, got %d", count)
	}
	if form.Record().ClientID != "ab" {
		t.Errorf("expected last write to win, got %q", form.Record().ClientID)
	}
	if form.Record().TokenRequestURI != "https://t" {
		t.Errorf("expected token URI 'https://t', got %q", form.Record().TokenRequestURI)
	}
}

func TestClientInfoFormSchema(t *testing.T) {
	schema := ClientInfoFormSchema()

	if schema.Label != "OAuth2 client information" {
		t.Errorf("expected section label 'OAuth2 client information', got %q", schema.Label)
	}
	if !schema.Collapsible || !schema.DefaultCollapsed {
		t.Error("expected a collapsible section that starts collapsed")
	}
	if len(schema.Fields) != 5 {
		t.Fatalf("expected 5 fields, got %d", len(schema.Fields))
	}

	byField := map[ClientInfoField]FormFieldSpec{}
	for _, f := range schema.Fields {
		byField[f.Field] = f
	}

	if !byField[FieldClientSecret].Secret {
		t.Error("expected the client secret field to be marked secret")
	}
	if byField[FieldClientID].Secret {
		t.Error("expected the client ID field to not be secret")
	}
	if byField[FieldAuthorizationRequestURI].Placeholder != "https://" {
		t.Errorf("expected authorization URI placeholder 'https://', got %q",
			byField[FieldAuthorizationRequestURI].Placeholder)
	}
	if byField[FieldTokenRequestURI].Placeholder != "https://" {
		t.Errorf("expected token URI placeholder 'https://', got %q",
			byField[FieldTokenRequestURI].Placeholder)
	}
	if byField[FieldClientID].Label != "Client ID" {
		t.Errorf("expected label 'Client ID', got %q", byField[FieldClientID].Label)
	}
}
