package models

import "time"

// Contact is an address book entry that recipients can be assigned from.
type Contact struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"              validate:"required"`
	Phone     string    `json:"phone_number"      validate:"required,numeric,min=10"`
	Company   string    `json:"company,omitempty"`
	Role      string    `json:"role,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// ContactSummary includes the forms a contact receives messages for.
type ContactSummary struct {
	Contact

	FormCount int      `json:"form_count"`
	FormIDs   []string `json:"form_ids"`
}

// Recipient builds a recipient entry for this contact, copying its current phone number.
func (c *Contact) Recipient() Recipient {
	id := c.ID

	return Recipient{
		Phone:     c.Phone,
		Label:     c.Name,
		ContactID: &id,
	}
}
