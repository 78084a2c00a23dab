package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/form_import.schema.json
var formImportSchema []byte

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// FormStore is what the forms service needs from persistence.
type FormStore interface {
	persistence.FormRepository
	ContactByID(ctx context.Context, id int64) (*models.Contact, error)
}

// RecipientInput adds a recipient either from a contact or from a raw phone number.
type RecipientInput struct {
	ContactID *int64
	Phone     string
	Label     string
}

// FormInput describes a form to create.
type FormInput struct {
	ID          string
	Name        string
	Description string
	Fields      []models.Field
	Recipients  []RecipientInput
}

// FormUpdate describes a partial update. Nil members are left unchanged.
type FormUpdate struct {
	Name        *string
	Description *string
	Fields      []models.Field
	Recipients  []RecipientInput
}

// FormExport is the portable JSON representation of a form.
type FormExport struct {
	models.Form

	WebhookURL string `json:"webhook_url,omitempty"`
}

type Forms struct {
	store    FormStore
	validate *validator.Validate
}

func NewForms(store FormStore) *Forms {
	return &Forms{
		store:    store,
		validate: newValidator(),
	}
}

func (f *Forms) List(ctx context.Context) ([]*models.FormSummary, error) {
	forms, err := f.store.Forms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}

	return forms, nil
}

func (f *Forms) Get(ctx context.Context, id string) (*models.Form, error) {
	return f.store.FormByID(ctx, id)
}

// Create validates and stores a new form. An empty ID is derived from the name.
func (f *Forms) Create(ctx context.Context, input FormInput) (*models.Form, error) {
	form := &models.Form{
		ID:          strings.TrimSpace(input.ID),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Fields:      input.Fields,
	}

	if form.ID == "" {
		form.ID = Slugify(form.Name)
	}

	recipients, err := f.resolveRecipients(ctx, input.Recipients)
	if err != nil {
		return nil, err
	}

	form.Recipients = recipients

	if err := f.create(ctx, "create form", form); err != nil {
		return nil, err
	}

	return form, nil
}

func (f *Forms) create(ctx context.Context, op string, form *models.Form) error {
	form.Renumber()

	if err := f.validate.Struct(form); err != nil {
		return NewValidationError(op, "invalid_form", describeValidation(err), ErrInvalidRequest)
	}

	if err := f.store.CreateForm(ctx, form); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *Forms) Update(ctx context.Context, id string, update FormUpdate) (*models.Form, error) {
	form, err := f.store.FormByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		form.Name = strings.TrimSpace(*update.Name)
	}

	if update.Description != nil {
		form.Description = strings.TrimSpace(*update.Description)
	}

	if update.Fields != nil {
		form.Fields = update.Fields
	}

	if update.Recipients != nil {
		recipients, err := f.resolveRecipients(ctx, update.Recipients)
		if err != nil {
			return nil, err
		}

		form.Recipients = recipients
	}

	form.Renumber()

	if err := f.validate.Struct(form); err != nil {
		return nil, NewValidationError("update form", "invalid_form", describeValidation(err), ErrInvalidRequest)
	}

	if err := f.store.UpdateForm(ctx, form); err != nil {
		return nil, fmt.Errorf("update form: %w", err)
	}

	return form, nil
}

func (f *Forms) Delete(ctx context.Context, id string) error {
	return f.store.DeleteForm(ctx, id)
}

// Export returns the form in its portable representation. webhookBase may be empty.
func (f *Forms) Export(ctx context.Context, id, webhookBase string) (*FormExport, error) {
	form, err := f.store.FormByID(ctx, id)
	if err != nil {
		return nil, err
	}

	export := &FormExport{Form: *form}
	if webhookBase != "" {
		export.WebhookURL = strings.TrimRight(webhookBase, "/") + "/webhook/" + form.ID
	}

	return export, nil
}

// Import creates a form from its exported JSON. Existing ids are rejected.
func (f *Forms) Import(ctx context.Context, raw []byte) (*models.Form, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(formImportSchema), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, NewValidationError("import form", "invalid_json", err.Error(), ErrInvalidImport)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return nil, NewValidationError("import form", "schema_mismatch", strings.Join(messages, "; "), ErrInvalidImport)
	}

	var export FormExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return nil, NewValidationError("import form", "invalid_json", err.Error(), ErrInvalidImport)
	}

	form := export.Form
	form.Fields = models.SortFields(form.Fields)

	for i := range form.Recipients {
		form.Recipients[i].ID = 0
		form.Recipients[i].Phone = NormalizePhone(form.Recipients[i].Phone)
	}

	if err := f.create(ctx, "import form", &form); err != nil {
		return nil, err
	}

	return &form, nil
}

func (f *Forms) resolveRecipients(ctx context.Context, inputs []RecipientInput) ([]models.Recipient, error) {
	recipients := make([]models.Recipient, 0, len(inputs))

	for _, input := range inputs {
		if input.ContactID != nil {
			contact, err := f.store.ContactByID(ctx, *input.ContactID)
			if err != nil {
				return nil, err
			}

			recipient := contact.Recipient()
			if input.Label != "" {
				recipient.Label = input.Label
			}

			recipients = append(recipients, recipient)

			continue
		}

		recipients = append(recipients, models.Recipient{
			Phone: NormalizePhone(input.Phone),
			Label: strings.TrimSpace(input.Label),
		})
	}

	return recipients, nil
}

// ParseFieldSpec parses "elementor_id:Label[:type]".
func ParseFieldSpec(spec string) (models.Field, error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return models.Field{}, fmt.Errorf("%w: %q, expected id:label[:type]", ErrInvalidField, spec)
	}

	field := models.Field{
		FieldID: strings.TrimSpace(parts[0]),
		Label:   strings.TrimSpace(parts[1]),
		Type:    "text",
	}

	if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
		field.Type = strings.TrimSpace(parts[2])
	}

	return field, nil
}

// Slugify derives a form id from a display name.
func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
