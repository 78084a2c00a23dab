package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/eventbus"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/events"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
)

type subscribers struct {
	logs   persistence.WebhookLogRepository
	logger *slog.Logger
}

// registerSubscribers wires the relay event handlers. logs may be nil when no store is configured.
func registerSubscribers(bus eventbus.EventSubscriber, logs persistence.WebhookLogRepository, logger *slog.Logger) error {
	s := &subscribers{logs: logs, logger: logger.With("module", "subscribers")}

	if err := bus.Handle(events.SubmissionProcessedEvent, s.handleSubmissionProcessed); err != nil {
		return fmt.Errorf("failed to subscribe to %s events: %w", events.SubmissionProcessedEvent, err)
	}

	if err := bus.Handle(events.ProviderStatusChangedEvent, s.handleProviderStatusChanged); err != nil {
		return fmt.Errorf("failed to subscribe to %s events: %w", events.ProviderStatusChangedEvent, err)
	}

	return nil
}

// handleSubmissionProcessed stores the webhook log. Store failures are logged and dropped,
// a redelivery would not make them succeed.
func (s *subscribers) handleSubmissionProcessed(ctx context.Context, eventData any) error {
	event, ok := eventData.(*events.SubmissionProcessed)
	if !ok {
		return fmt.Errorf("invalid event type for %s: %T", events.SubmissionProcessedEvent, eventData)
	}

	if s.logs == nil {
		return nil
	}

	if err := s.logs.CreateWebhookLog(ctx, event.WebhookLog()); err != nil {
		s.logger.ErrorContext(ctx, "Failed to store webhook log",
			"form_id", event.FormID,
			"request_id", event.RequestID,
			"error", err)
	}

	return nil
}

func (s *subscribers) handleProviderStatusChanged(ctx context.Context, eventData any) error {
	event, ok := eventData.(*events.ProviderStatusChanged)
	if !ok {
		return fmt.Errorf("invalid event type for %s: %T", events.ProviderStatusChangedEvent, eventData)
	}

	s.logger.InfoContext(ctx, "Provider status changed",
		"key", event.Key,
		"connected", event.Connected,
		"session", event.Session,
		"alerted", event.Alerted)

	return nil
}
