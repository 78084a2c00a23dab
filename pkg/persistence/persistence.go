// Package persistence provides the storage abstraction for forms, contacts, webhook logs and
// provider monitoring state.
package persistence

import (
	"context"
	"time"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
)

type FormRepository interface {
	Forms(ctx context.Context) ([]*models.FormSummary, error)
	// FormByID returns the form with its ordered fields and recipients.
	FormByID(ctx context.Context, id string) (*models.Form, error)
	CreateForm(ctx context.Context, form *models.Form) error
	// UpdateForm replaces the form metadata, fields and recipients atomically.
	UpdateForm(ctx context.Context, form *models.Form) error
	DeleteForm(ctx context.Context, id string) error
}

type ContactRepository interface {
	Contacts(ctx context.Context, search string) ([]*models.ContactSummary, error)
	ContactByID(ctx context.Context, id int64) (*models.Contact, error)
	CreateContact(ctx context.Context, contact *models.Contact) error
	UpdateContact(ctx context.Context, contact *models.Contact) error
	// DeleteContact removes the contact and unlinks it from every form recipient.
	DeleteContact(ctx context.Context, id int64) error
}

type WebhookLogRepository interface {
	CreateWebhookLog(ctx context.Context, log *models.WebhookLog) error
	WebhookLogs(ctx context.Context, formID string, limit int) ([]*models.WebhookLog, error)
	Stats(ctx context.Context, now time.Time) (*models.Stats, error)
}

// MonitoringRepository holds the provider connectivity snapshot and its history.
type MonitoringRepository interface {
	// LoadState returns ErrMonitoringStateNotFound before the first snapshot was saved.
	LoadState(ctx context.Context, key string) (*models.MonitoringState, error)
	SaveState(ctx context.Context, state *models.MonitoringState) error
	// AppendHistory records entry and keeps only the most recent limit entries for its key.
	AppendHistory(ctx context.Context, entry *models.MonitoringHistoryEntry, limit int) error
	History(ctx context.Context, key string, limit int) ([]*models.MonitoringHistoryEntry, error)
}

type Persistence interface {
	FormRepository
	ContactRepository
	WebhookLogRepository
	MonitoringRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
