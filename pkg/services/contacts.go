package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
)

var contactsCSVHeader = []string{"ID", "Name", "Phone Number", "Company", "Role", "Notes", "Form Count", "Created At"}

// csvColumns maps lowercased header names to contact attributes. Earlier aliases win.
var csvColumns = map[string][]string{
	"name":    {"name"},
	"phone":   {"phone number", "phone", "phone_number"},
	"company": {"company"},
	"role":    {"role"},
	"notes":   {"notes"},
}

// ContactUpdate describes a partial contact update. Nil members are left unchanged.
type ContactUpdate struct {
	Name    *string
	Phone   *string
	Company *string
	Role    *string
	Notes   *string
}

// ImportReport summarizes a CSV import.
type ImportReport struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

type Contacts struct {
	store    persistence.ContactRepository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewContacts(store persistence.ContactRepository, logger *slog.Logger) *Contacts {
	return &Contacts{
		store:    store,
		validate: newValidator(),
		logger:   logger.With("module", "contacts_service"),
	}
}

// List returns contacts whose name, company or phone contains search. An empty search lists all.
func (c *Contacts) List(ctx context.Context, search string) ([]*models.ContactSummary, error) {
	contacts, err := c.store.Contacts(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	return contacts, nil
}

func (c *Contacts) Get(ctx context.Context, id int64) (*models.Contact, error) {
	return c.store.ContactByID(ctx, id)
}

func (c *Contacts) Create(ctx context.Context, contact *models.Contact) error {
	if contact == nil {
		return ErrContactNil
	}

	normalizeContact(contact)

	if err := c.validate.Struct(contact); err != nil {
		return NewValidationError("create contact", "invalid_contact", describeValidation(err), ErrInvalidRequest)
	}

	if err := c.store.CreateContact(ctx, contact); err != nil {
		return fmt.Errorf("create contact: %w", err)
	}

	return nil
}

// Update applies the changes. A new phone number is propagated to the forms using the contact.
func (c *Contacts) Update(ctx context.Context, id int64, update ContactUpdate) (*models.Contact, error) {
	contact, err := c.store.ContactByID(ctx, id)
	if err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	apply(&contact.Name, update.Name)
	apply(&contact.Phone, update.Phone)
	apply(&contact.Company, update.Company)
	apply(&contact.Role, update.Role)
	apply(&contact.Notes, update.Notes)

	normalizeContact(contact)

	if err := c.validate.Struct(contact); err != nil {
		return nil, NewValidationError("update contact", "invalid_contact", describeValidation(err), ErrInvalidRequest)
	}

	if err := c.store.UpdateContact(ctx, contact); err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}

	return contact, nil
}

// Delete removes the contact. Form recipients that referenced it keep their phone number.
func (c *Contacts) Delete(ctx context.Context, id int64) error {
	return c.store.DeleteContact(ctx, id)
}

// ExportCSV writes every contact with its form usage.
func (c *Contacts) ExportCSV(ctx context.Context, w io.Writer) error {
	contacts, err := c.store.Contacts(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}

	writer := csv.NewWriter(w)

	if err := writer.Write(contactsCSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, contact := range contacts {
		record := []string{
			strconv.FormatInt(contact.ID, 10),
			contact.Name,
			contact.Phone,
			contact.Company,
			contact.Role,
			contact.Notes,
			strconv.Itoa(contact.FormCount),
			contact.CreatedAt.Format("2006-01-02 15:04:05"),
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()

	return writer.Error()
}

// ImportCSV creates a contact per row. Rows without a name or phone are skipped, and rows the
// store rejects are reported without aborting the import.
func (c *Contacts) ImportCSV(ctx context.Context, r io.Reader) (*ImportReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, NewValidationError("import contacts", "invalid_header", "failed to read CSV header", errors.Join(ErrInvalidCSV, err))
	}

	columns := mapColumns(header)
	if _, ok := columns["name"]; !ok {
		return nil, NewValidationError("import contacts", "invalid_header", "missing Name column", ErrInvalidCSV)
	}

	if _, ok := columns["phone"]; !ok {
		return nil, NewValidationError("import contacts", "invalid_header", "missing Phone Number column", ErrInvalidCSV)
	}

	report := &ImportReport{}
	line := 1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		line++

		if err != nil {
			return report, NewValidationError("import contacts", "invalid_row", fmt.Sprintf("line %d: %v", line, err), ErrInvalidCSV)
		}

		contact := &models.Contact{
			Name:    column(record, columns, "name"),
			Phone:   column(record, columns, "phone"),
			Company: column(record, columns, "company"),
			Role:    column(record, columns, "role"),
			Notes:   column(record, columns, "notes"),
		}

		if contact.Name == "" || contact.Phone == "" {
			report.Skipped++

			continue
		}

		if err := c.Create(ctx, contact); err != nil {
			c.logger.WarnContext(ctx, "Failed to import contact", "name", contact.Name, "line", line, "error", err)
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("line %d (%s): %v", line, contact.Name, err))

			continue
		}

		report.Imported++
	}

	return report, nil
}

func mapColumns(header []string) map[string]int {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		positions[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	columns := make(map[string]int, len(csvColumns))

	for attr, aliases := range csvColumns {
		for _, alias := range aliases {
			if idx, ok := positions[alias]; ok {
				columns[attr] = idx

				break
			}
		}
	}

	return columns
}

func column(record []string, columns map[string]int, attr string) string {
	idx, ok := columns[attr]
	if !ok || idx >= len(record) {
		return ""
	}

	return strings.TrimSpace(record[idx])
}

func normalizeContact(contact *models.Contact) {
	contact.Name = strings.TrimSpace(contact.Name)
	contact.Phone = NormalizePhone(contact.Phone)
	contact.Company = strings.TrimSpace(contact.Company)
	contact.Role = strings.TrimSpace(contact.Role)
	contact.Notes = strings.TrimSpace(contact.Notes)
}
