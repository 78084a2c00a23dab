// Package models defines the domain models for form relaying: forms, their field mappings,
// recipients, contacts and provider monitoring snapshots.
package models

import (
	"sort"
	"time"
)

// LegacyFormID is the reserved form identifier kept from the single-form deployment.
const LegacyFormID = "elementor"

// Form is a named schema of expected submission fields plus its message recipients.
type Form struct {
	ID          string      `json:"id"                    validate:"required,max=64"`
	Name        string      `json:"name"                  validate:"required"`
	Description string      `json:"description"`
	Fields      []Field     `json:"fields"                validate:"unique=FieldID,dive"`
	Recipients  []Recipient `json:"numbers"               validate:"dive"`
	CreatedAt   time.Time   `json:"created_at,omitzero"`
	UpdatedAt   time.Time   `json:"updated_at,omitzero"`
}

// Field maps an upstream form builder field identifier to a human-readable label.
type Field struct {
	FieldID  string `json:"elementor_id" validate:"required"`
	Label    string `json:"label"        validate:"required"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required,omitempty"`
	Order    int    `json:"position"`
}

// Recipient is a phone number destination for a formatted message.
type Recipient struct {
	ID        int64  `json:"id,omitempty"`
	Phone     string `json:"phone_number"         validate:"required,numeric,min=10"`
	Label     string `json:"label,omitempty"`
	ContactID *int64 `json:"contact_id,omitempty"`
}

// FormSummary is the list view of a form.
type FormSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	FieldCount     int       `json:"field_count"`
	RecipientCount int       `json:"number_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OrderedFields returns the form's fields sorted by display order. Ties keep their original position.
func (f *Form) OrderedFields() []Field {
	return SortFields(f.Fields)
}

// Phones returns the recipient phone numbers in configuration order, skipping blanks.
func (f *Form) Phones() []string {
	phones := make([]string, 0, len(f.Recipients))

	for _, r := range f.Recipients {
		if r.Phone == "" {
			continue
		}

		phones = append(phones, r.Phone)
	}

	return phones
}

// Renumber assigns sequential Order values following the current slice order.
func (f *Form) Renumber() {
	for i := range f.Fields {
		f.Fields[i].Order = i
	}
}

// SortFields returns a copy of fields sorted by Order.
func SortFields(fields []Field) []Field {
	sorted := make([]Field, len(fields))
	copy(sorted, fields)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	return sorted
}
