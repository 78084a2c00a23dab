// Package events defines the events published by the relay after processing a submission.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
)

type EventType string

// Topic carries every relay event.
const Topic = "relay.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	SubmissionProcessedEvent   EventType = "submission.processed"
	ProviderStatusChangedEvent EventType = "provider.status.changed"
)

// Submission outcome labels stored in webhook logs.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]any),
	}
}

// SubmissionProcessed is published once per webhook invocation, whatever its outcome.
type SubmissionProcessed struct {
	BaseEvent

	RequestID  string `json:"request_id"`
	FormID     string `json:"form_id"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Request    string `json:"request"`
	Response   string `json:"response"`
	DurationMS int64  `json:"duration_ms"`
}

func (e SubmissionProcessed) GetType() EventType {
	return SubmissionProcessedEvent
}

// WebhookLog converts the event into its persisted form.
func (e *SubmissionProcessed) WebhookLog() *models.WebhookLog {
	return &models.WebhookLog{
		RequestID:  e.RequestID,
		FormID:     e.FormID,
		Status:     e.Status,
		StatusCode: e.StatusCode,
		Request:    e.Request,
		Response:   e.Response,
		DurationMS: e.DurationMS,
		CreatedAt:  e.Timestamp,
	}
}

// StatusFor maps an HTTP status code to a submission outcome label.
func StatusFor(code int) string {
	switch {
	case code == 207:
		return StatusPartial
	case code >= 200 && code < 300:
		return StatusSuccess
	default:
		return StatusError
	}
}

// ProviderStatusChanged is published when the monitor records a connectivity transition.
type ProviderStatusChanged struct {
	BaseEvent

	Key       string `json:"key"`
	Connected bool   `json:"connected"`
	Session   bool   `json:"session"`
	Alerted   bool   `json:"alerted"`
}

func (e ProviderStatusChanged) GetType() EventType {
	return ProviderStatusChangedEvent
}
