package models

import "time"

// WebhookLog records one webhook invocation.
type WebhookLog struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	FormID     string    `json:"form_id"`
	Status     string    `json:"status"`
	StatusCode int       `json:"status_code"`
	Request    string    `json:"request"`
	Response   string    `json:"response"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Stats holds dashboard counters.
type Stats struct {
	TotalForms       int       `json:"total_forms"`
	TotalContacts    int       `json:"total_contacts"`
	WebhooksToday    int       `json:"webhooks_today"`
	LastWebhook      time.Time `json:"last_webhook,omitzero"`
	ConnectionStatus string    `json:"connection_status"`
}
