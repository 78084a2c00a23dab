package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/mocks"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func TestForms_Create(t *testing.T) {
	t.Parallel()

	store := &mocks.MockPersistence{}
	store.On("ContactByID", mock.Anything, int64(7)).Return(&models.Contact{ID: 7, Name: "Ana", Phone: "5511999990000"}, nil)
	store.On("CreateForm", mock.Anything, mock.AnythingOfType("*models.Form")).Return(nil)

	service := NewForms(store)

	form, err := service.Create(context.Background(), FormInput{
		Name: "Contato Site",
		Fields: []models.Field{
			{FieldID: "name", Label: "Nome"},
			{FieldID: "email", Label: "E-mail"},
		},
		Recipients: []RecipientInput{
			{ContactID: int64Ptr(7)},
			{Phone: "+55 (11) 98888-7777", Label: "Backup"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "contato-site", form.ID)
	assert.Equal(t, 1, form.Fields[1].Order)
	require.Len(t, form.Recipients, 2)
	assert.Equal(t, "5511999990000", form.Recipients[0].Phone)
	assert.Equal(t, "Ana", form.Recipients[0].Label)
	require.NotNil(t, form.Recipients[0].ContactID)
	assert.Equal(t, int64(7), *form.Recipients[0].ContactID)
	assert.Equal(t, "5511988887777", form.Recipients[1].Phone)

	store.AssertExpectations(t)
}

func TestForms_CreateRejectsInvalidForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input FormInput
	}{
		{name: "missing name", input: FormInput{ID: "x"}},
		{
			name: "duplicate field ids",
			input: FormInput{Name: "Dup", Fields: []models.Field{
				{FieldID: "name", Label: "Nome"},
				{FieldID: "name", Label: "Name"},
			}},
		},
		{
			name:  "short phone",
			input: FormInput{Name: "Phone", Recipients: []RecipientInput{{Phone: "123"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &mocks.MockPersistence{}
			service := NewForms(store)

			_, err := service.Create(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			store.AssertNotCalled(t, "CreateForm", mock.Anything, mock.Anything)
		})
	}
}

func TestForms_CreateConflict(t *testing.T) {
	t.Parallel()

	store := &mocks.MockPersistence{}
	store.On("CreateForm", mock.Anything, mock.Anything).
		Return(persistence.NewFormError("create", "contact", persistence.ErrFormAlreadyExists))

	_, err := NewForms(store).Create(context.Background(), FormInput{ID: "contact", Name: "Contact"})
	require.Error(t, err)
	assert.True(t, IsConflictError(err))
}

func TestForms_UpdateKeepsUnsetMembers(t *testing.T) {
	t.Parallel()

	existing := &models.Form{
		ID:          "contact",
		Name:        "Contact",
		Description: "old",
		Fields:      []models.Field{{FieldID: "name", Label: "Nome"}},
		Recipients:  []models.Recipient{{Phone: "5511999990000"}},
	}

	store := &mocks.MockPersistence{}
	store.On("FormByID", mock.Anything, "contact").Return(existing, nil)
	store.On("UpdateForm", mock.Anything, mock.MatchedBy(func(f *models.Form) bool {
		return f.Name == "Contato" && f.Description == "old" && len(f.Fields) == 1 && len(f.Recipients) == 1
	})).Return(nil)

	form, err := NewForms(store).Update(context.Background(), "contact", FormUpdate{Name: strPtr(" Contato ")})
	require.NoError(t, err)
	assert.Equal(t, "Contato", form.Name)

	store.AssertExpectations(t)
}

func TestForms_UpdateNotFound(t *testing.T) {
	t.Parallel()

	store := &mocks.MockPersistence{}
	store.On("FormByID", mock.Anything, "missing").
		Return(nil, persistence.NewFormError("get", "missing", persistence.ErrFormNotFound))

	_, err := NewForms(store).Update(context.Background(), "missing", FormUpdate{})
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestForms_Export(t *testing.T) {
	t.Parallel()

	store := &mocks.MockPersistence{}
	store.On("FormByID", mock.Anything, "contact").Return(&models.Form{ID: "contact", Name: "Contact"}, nil)

	export, err := NewForms(store).Export(context.Background(), "contact", "https://relay.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://relay.example.com/webhook/contact", export.WebhookURL)

	raw, err := json.Marshal(export)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"webhook_url":"https://relay.example.com/webhook/contact"`)
	assert.Contains(t, string(raw), `"id":"contact"`)
}

func TestForms_Import(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"id": "landing",
		"name": "Landing",
		"fields": [
			{"elementor_id": "email", "label": "E-mail", "position": 2},
			{"elementor_id": "name", "label": "Nome", "position": 1}
		],
		"numbers": [{"phone_number": "+55 11 99999-0000", "label": "Vendas", "id": 12}],
		"webhook_url": "https://old.example.com/webhook/landing"
	}`)

	store := &mocks.MockPersistence{}
	store.On("CreateForm", mock.Anything, mock.AnythingOfType("*models.Form")).Return(nil)

	form, err := NewForms(store).Import(context.Background(), raw)
	require.NoError(t, err)

	require.Len(t, form.Fields, 2)
	assert.Equal(t, "name", form.Fields[0].FieldID)
	assert.Equal(t, 0, form.Fields[0].Order)
	assert.Equal(t, "5511999990000", form.Recipients[0].Phone)
	assert.Zero(t, form.Recipients[0].ID)
}

func TestForms_ImportRejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"not json":        `{`,
		"missing name":    `{"id": "x"}`,
		"field no label":  `{"id": "x", "name": "X", "fields": [{"elementor_id": "a"}]}`,
		"number not text": `{"id": "x", "name": "X", "numbers": [{"phone_number": 5511}]}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := &mocks.MockPersistence{}

			_, err := NewForms(store).Import(context.Background(), []byte(raw))
			require.Error(t, err)
			require.ErrorIs(t, err, ErrInvalidImport)

			store.AssertNotCalled(t, "CreateForm", mock.Anything, mock.Anything)
		})
	}
}

func TestParseFieldSpec(t *testing.T) {
	t.Parallel()

	field, err := ParseFieldSpec("field_cef3ba0:Telefone:tel")
	require.NoError(t, err)
	assert.Equal(t, models.Field{FieldID: "field_cef3ba0", Label: "Telefone", Type: "tel"}, field)

	field, err = ParseFieldSpec("name:Nome")
	require.NoError(t, err)
	assert.Equal(t, "text", field.Type)

	_, err = ParseFieldSpec("name")
	require.ErrorIs(t, err, ErrInvalidField)

	_, err = ParseFieldSpec(":Nome")
	require.ErrorIs(t, err, ErrInvalidField)
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "contato-site", Slugify("  Contato  Site! "))
	assert.Equal(t, "landing-2026", Slugify("Landing 2026"))
}
