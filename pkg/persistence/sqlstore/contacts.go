package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/store"
)

const contactColumns = "id, name, phone_number, company, role, notes, created_at, updated_at"

// Contacts lists contacts ordered by name, optionally filtered by a case-insensitive search
// over name, phone, company and role. Each entry lists the forms it receives messages for.
func (p *Persistence) Contacts(ctx context.Context, search string) ([]*models.ContactSummary, error) {
	query := "SELECT " + contactColumns + " FROM contacts"
	params := []any{}

	if search = strings.TrimSpace(search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query += ` WHERE LOWER(name) LIKE ? OR phone_number LIKE ? OR LOWER(company) LIKE ? OR LOWER(role) LIKE ?`
		params = append(params, pattern, pattern, pattern, pattern)
	}

	query += " ORDER BY name, id"

	results, err := p.exec.Batch(ctx, []store.Statement{
		{SQL: query, Params: params},
		{SQL: "SELECT contact_id, form_id FROM form_numbers WHERE contact_id IS NOT NULL ORDER BY form_id"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}

	if len(results) != 2 {
		return nil, fmt.Errorf("failed to query contacts: expected 2 results, got %d", len(results))
	}

	usage := make(map[int64][]string)

	for _, row := range results[1].Rows {
		contactID := row.Int64("contact_id")
		formID := row.String("form_id")

		forms := usage[contactID]
		if len(forms) > 0 && forms[len(forms)-1] == formID {
			continue
		}

		usage[contactID] = append(forms, formID)
	}

	contacts := make([]*models.ContactSummary, 0, len(results[0].Rows))

	for _, row := range results[0].Rows {
		contact := scanContact(row)

		formIDs := usage[contact.ID]
		if formIDs == nil {
			formIDs = []string{}
		}

		contacts = append(contacts, &models.ContactSummary{
			Contact:   *contact,
			FormCount: len(formIDs),
			FormIDs:   formIDs,
		})
	}

	return contacts, nil
}

func (p *Persistence) ContactByID(ctx context.Context, id int64) (*models.Contact, error) {
	result, err := p.exec.Query(ctx, "SELECT "+contactColumns+" FROM contacts WHERE id = ?", id)
	if err != nil {
		return nil, persistence.NewContactError("ContactByID", id, err)
	}

	row := result.First()
	if row == nil {
		return nil, persistence.NewContactError("ContactByID", id, persistence.ErrContactNotFound)
	}

	return scanContact(row), nil
}

func (p *Persistence) CreateContact(ctx context.Context, contact *models.Contact) error {
	now := p.timestamp()

	result, err := p.exec.Query(ctx,
		`INSERT INTO contacts (name, phone_number, company, role, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		contact.Name, contact.Phone, contact.Company, contact.Role, contact.Notes, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewContactError("CreateContact", 0, persistence.ErrContactPhoneTaken)
		}

		return persistence.NewContactError("CreateContact", 0, err)
	}

	contact.ID = result.First().Int64("id")
	contact.CreatedAt = now
	contact.UpdatedAt = now

	return nil
}

// UpdateContact saves the contact and refreshes the phone copy held by linked recipients.
func (p *Persistence) UpdateContact(ctx context.Context, contact *models.Contact) error {
	if _, err := p.ContactByID(ctx, contact.ID); err != nil {
		return err
	}

	contact.UpdatedAt = p.timestamp()

	_, err := p.exec.Batch(ctx, []store.Statement{
		{
			SQL: `UPDATE contacts SET name = ?, phone_number = ?, company = ?, role = ?, notes = ?, updated_at = ?
				WHERE id = ?`,
			Params: []any{contact.Name, contact.Phone, contact.Company, contact.Role, contact.Notes, contact.UpdatedAt, contact.ID},
		},
		{
			SQL:    "UPDATE form_numbers SET phone_number = ? WHERE contact_id = ?",
			Params: []any{contact.Phone, contact.ID},
		},
	})
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewContactError("UpdateContact", contact.ID, persistence.ErrContactPhoneTaken)
		}

		return persistence.NewContactError("UpdateContact", contact.ID, err)
	}

	return nil
}

// DeleteContact unlinks the contact from recipients and deletes it atomically. Unlinked
// recipients keep the last copied phone number.
func (p *Persistence) DeleteContact(ctx context.Context, id int64) error {
	if _, err := p.ContactByID(ctx, id); err != nil {
		return err
	}

	_, err := p.exec.Batch(ctx, []store.Statement{
		{SQL: "UPDATE form_numbers SET contact_id = NULL WHERE contact_id = ?", Params: []any{id}},
		{SQL: "DELETE FROM contacts WHERE id = ?", Params: []any{id}},
	})
	if err != nil {
		return persistence.NewContactError("DeleteContact", id, err)
	}

	p.logger.InfoContext(ctx, "Contact deleted", "contact_id", id)

	return nil
}

func scanContact(row store.Row) *models.Contact {
	return &models.Contact{
		ID:        row.Int64("id"),
		Name:      row.String("name"),
		Phone:     row.String("phone_number"),
		Company:   row.String("company"),
		Role:      row.String("role"),
		Notes:     row.String("notes"),
		CreatedAt: row.Time("created_at"),
		UpdatedAt: row.Time("updated_at"),
	}
}
