package sqlstore

import (
	"context"
	"fmt"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/store"
)

// Forms returns every form with its field and recipient counts.
func (p *Persistence) Forms(ctx context.Context) ([]*models.FormSummary, error) {
	query := `
		SELECT
			f.id
		  , f.name
		  , f.description
		  , f.created_at
		  , f.updated_at
		  , (SELECT COUNT(*) FROM form_fields ff WHERE ff.form_id = f.id) AS field_count
		  , (SELECT COUNT(*) FROM form_numbers fn WHERE fn.form_id = f.id) AS number_count
		FROM forms f
		ORDER BY f.created_at DESC, f.id
	`

	result, err := p.exec.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query forms: %w", err)
	}

	forms := make([]*models.FormSummary, 0, len(result.Rows))

	for _, row := range result.Rows {
		forms = append(forms, &models.FormSummary{
			ID:             row.String("id"),
			Name:           row.String("name"),
			Description:    row.String("description"),
			FieldCount:     int(row.Int64("field_count")),
			RecipientCount: int(row.Int64("number_count")),
			CreatedAt:      row.Time("created_at"),
			UpdatedAt:      row.Time("updated_at"),
		})
	}

	return forms, nil
}

// FormByID loads the form, its fields and its recipients in one round trip. A recipient linked
// to a contact resolves to the contact's current phone number.
func (p *Persistence) FormByID(ctx context.Context, id string) (*models.Form, error) {
	results, err := p.exec.Batch(ctx, []store.Statement{
		{
			SQL:    "SELECT id, name, description, created_at, updated_at FROM forms WHERE id = ?",
			Params: []any{id},
		},
		{
			SQL: `SELECT elementor_id, label, type, required, position
				FROM form_fields WHERE form_id = ? ORDER BY position, id`,
			Params: []any{id},
		},
		{
			SQL: `SELECT
					fn.id
				  , COALESCE(c.phone_number, fn.phone_number) AS phone_number
				  , COALESCE(NULLIF(fn.label, ''), c.name, '') AS label
				  , fn.contact_id
				FROM form_numbers fn
				LEFT JOIN contacts c ON c.id = fn.contact_id
				WHERE fn.form_id = ?
				ORDER BY fn.id`,
			Params: []any{id},
		},
	})
	if err != nil {
		return nil, persistence.NewFormError("FormByID", id, err)
	}

	if len(results) != 3 {
		return nil, persistence.NewFormError("FormByID", id, fmt.Errorf("expected 3 results, got %d", len(results)))
	}

	row := results[0].First()
	if row == nil {
		return nil, persistence.NewFormError("FormByID", id, persistence.ErrFormNotFound)
	}

	form := &models.Form{
		ID:          row.String("id"),
		Name:        row.String("name"),
		Description: row.String("description"),
		CreatedAt:   row.Time("created_at"),
		UpdatedAt:   row.Time("updated_at"),
		Fields:      make([]models.Field, 0, len(results[1].Rows)),
		Recipients:  make([]models.Recipient, 0, len(results[2].Rows)),
	}

	for _, r := range results[1].Rows {
		form.Fields = append(form.Fields, models.Field{
			FieldID:  r.String("elementor_id"),
			Label:    r.String("label"),
			Type:     r.String("type"),
			Required: r.Bool("required"),
			Order:    int(r.Int64("position")),
		})
	}

	for _, r := range results[2].Rows {
		form.Recipients = append(form.Recipients, models.Recipient{
			ID:        r.Int64("id"),
			Phone:     r.String("phone_number"),
			Label:     r.String("label"),
			ContactID: r.NullableInt64("contact_id"),
		})
	}

	return form, nil
}

// CreateForm inserts the form with its fields and recipients atomically.
func (p *Persistence) CreateForm(ctx context.Context, form *models.Form) error {
	exists, err := p.formExists(ctx, form.ID)
	if err != nil {
		return persistence.NewFormError("CreateForm", form.ID, err)
	}

	if exists {
		return persistence.NewFormError("CreateForm", form.ID, persistence.ErrFormAlreadyExists)
	}

	now := p.timestamp()
	form.CreatedAt = now
	form.UpdatedAt = now

	statements := []store.Statement{{
		SQL:    "INSERT INTO forms (id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		Params: []any{form.ID, form.Name, form.Description, now, now},
	}}
	statements = append(statements, p.childStatements(form)...)

	if _, err := p.exec.Batch(ctx, statements); err != nil {
		if isUniqueViolation(err) {
			return persistence.NewFormError("CreateForm", form.ID, persistence.ErrFormAlreadyExists)
		}

		return persistence.NewFormError("CreateForm", form.ID, err)
	}

	p.logger.InfoContext(ctx, "Form created", "form_id", form.ID, "fields", len(form.Fields), "recipients", len(form.Recipients))

	return nil
}

// UpdateForm replaces metadata, fields and recipients in one atomic batch.
func (p *Persistence) UpdateForm(ctx context.Context, form *models.Form) error {
	exists, err := p.formExists(ctx, form.ID)
	if err != nil {
		return persistence.NewFormError("UpdateForm", form.ID, err)
	}

	if !exists {
		return persistence.NewFormError("UpdateForm", form.ID, persistence.ErrFormNotFound)
	}

	form.UpdatedAt = p.timestamp()

	statements := []store.Statement{
		{
			SQL:    "UPDATE forms SET name = ?, description = ?, updated_at = ? WHERE id = ?",
			Params: []any{form.Name, form.Description, form.UpdatedAt, form.ID},
		},
		{SQL: "DELETE FROM form_fields WHERE form_id = ?", Params: []any{form.ID}},
		{SQL: "DELETE FROM form_numbers WHERE form_id = ?", Params: []any{form.ID}},
	}
	statements = append(statements, p.childStatements(form)...)

	if _, err := p.exec.Batch(ctx, statements); err != nil {
		return persistence.NewFormError("UpdateForm", form.ID, err)
	}

	p.logger.InfoContext(ctx, "Form updated", "form_id", form.ID)

	return nil
}

// DeleteForm removes the form with its fields and recipients atomically.
func (p *Persistence) DeleteForm(ctx context.Context, id string) error {
	exists, err := p.formExists(ctx, id)
	if err != nil {
		return persistence.NewFormError("DeleteForm", id, err)
	}

	if !exists {
		return persistence.NewFormError("DeleteForm", id, persistence.ErrFormNotFound)
	}

	_, err = p.exec.Batch(ctx, []store.Statement{
		{SQL: "DELETE FROM form_numbers WHERE form_id = ?", Params: []any{id}},
		{SQL: "DELETE FROM form_fields WHERE form_id = ?", Params: []any{id}},
		{SQL: "DELETE FROM forms WHERE id = ?", Params: []any{id}},
	})
	if err != nil {
		return persistence.NewFormError("DeleteForm", id, err)
	}

	p.logger.InfoContext(ctx, "Form deleted", "form_id", id)

	return nil
}

func (p *Persistence) formExists(ctx context.Context, id string) (bool, error) {
	result, err := p.exec.Query(ctx, "SELECT id FROM forms WHERE id = ?", id)
	if err != nil {
		return false, err
	}

	return result.First() != nil, nil
}

func (p *Persistence) childStatements(form *models.Form) []store.Statement {
	statements := make([]store.Statement, 0, len(form.Fields)+len(form.Recipients))

	for _, f := range form.Fields {
		fieldType := f.Type
		if fieldType == "" {
			fieldType = "text"
		}

		statements = append(statements, store.Statement{
			SQL: `INSERT INTO form_fields (form_id, elementor_id, label, type, required, position)
				VALUES (?, ?, ?, ?, ?, ?)`,
			Params: []any{form.ID, f.FieldID, f.Label, fieldType, f.Required, f.Order},
		})
	}

	for _, r := range form.Recipients {
		var contactID any
		if r.ContactID != nil {
			contactID = *r.ContactID
		}

		statements = append(statements, store.Statement{
			SQL:    "INSERT INTO form_numbers (form_id, phone_number, label, contact_id) VALUES (?, ?, ?, ?)",
			Params: []any{form.ID, r.Phone, r.Label, contactID},
		})
	}

	return statements
}
