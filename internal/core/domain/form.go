package domain

// ClientInfoTarget is the payload of a client-info change notification.
// The wire shape is fixed: consumers key on name "oauth2_client_info"
// and always receive the full record, not a delta.
type ClientInfoTarget struct {
	Type  string           `json:"type"`
	Name  string           `json:"name"`
	Value OAuth2ClientInfo `json:"value"`
}

// ClientInfoChange is emitted once per edit, carrying the entire
// updated credential record.
type ClientInfoChange struct {
	Target ClientInfoTarget `json:"target"`
}

// ClientInfoForm holds the working copy of a database's OAuth2 client
// credentials while they are being edited. The form owns its record
// exclusively; persistence and validation belong to whoever receives
// the change notifications.
type ClientInfoForm struct {
	record   OAuth2ClientInfo
	onChange func(ClientInfoChange)
}

// NewClientInfoForm builds a form hydrated from a previously saved
// encrypted-extra blob and caller defaults (see ResolveClientInfo for
// the per-field priority). onChange may be nil, in which case edits
// still apply but notify nobody.
func NewClientInfoForm(encryptedExtraJSON string, defaults OAuth2ClientInfo, onChange func(ClientInfoChange)) *ClientInfoForm {
	return &ClientInfoForm{
		record:   ResolveClientInfo(encryptedExtraJSON, defaults),
		onChange: onChange,
	}
}

// Record returns the current credential record.
func (f *ClientInfoForm) Record() OAuth2ClientInfo {
	return f.record
}

// Edit replaces the named field with the given text and synchronously
// emits one change notification carrying the whole updated record.
// The text is taken as-is: no validation, no trimming. Edit cannot
// fail.
func (f *ClientInfoForm) Edit(field ClientInfoField, text string) {
	f.record = f.record.WithField(field, text)
	if f.onChange != nil {
		f.onChange(ClientInfoChange{
			Target: ClientInfoTarget{
				Type:  "object",
				Name:  EncryptedExtraKey,
				Value: f.record,
			},
		})
	}
}

// FormFieldSpec describes how one credential field should be rendered.
// Secret fields must be masked by the consumer; placeholders are hints,
// never values.
type FormFieldSpec struct {
	Field       ClientInfoField `json:"field"`
	Label       string          `json:"label"`
	Placeholder string          `json:"placeholder,omitempty"`
	Secret      bool            `json:"secret"`
}

// FormSectionSpec groups the credential fields under a collapsible
// heading. Collapsed state is presentation only and has no effect on
// the record.
type FormSectionSpec struct {
	Label            string          `json:"label"`
	Collapsible      bool            `json:"collapsible"`
	DefaultCollapsed bool            `json:"default_collapsed"`
	Fields           []FormFieldSpec `json:"fields"`
}

// ClientInfoFormSchema returns the rendering contract for the OAuth2
// client credential form: five labeled fields in one collapsible
// section, with the client secret masked and the two endpoint URIs
// carrying a scheme hint.
func ClientInfoFormSchema() FormSectionSpec {
	return FormSectionSpec{
		Label:            "OAuth2 client information",
		Collapsible:      true,
		DefaultCollapsed: true,
		Fields: []FormFieldSpec{
			{Field: FieldClientID, Label: "Client ID"},
			{Field: FieldClientSecret, Label: "Client Secret", Secret: true},
			{Field: FieldAuthorizationRequestURI, Label: "Authorization Request URI", Placeholder: "https://"},
			{Field: FieldTokenRequestURI, Label: "Token Request URI", Placeholder: "https://"},
			{Field: FieldScope, Label: "Scope"},
		},
	}
}
