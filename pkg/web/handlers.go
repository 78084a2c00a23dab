package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/dispatch"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/eventbus"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/events"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/extract"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/forms"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/message"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/metrics"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/otelhelper"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/zapi"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "Elementor WhatsApp Webhook"
	maxLoggedBytes = 8 << 10
)

// FormResolver looks up the configuration of a form.
type FormResolver interface {
	Resolve(ctx context.Context, formID string) (*models.Form, error)
}

// Dispatcher fans a message out to phones.
type Dispatcher interface {
	Dispatch(ctx context.Context, phones []string, message string) dispatch.Outcome
}

// StatusProvider reports the messaging provider connectivity.
type StatusProvider interface {
	Status(ctx context.Context) (*zapi.Status, error)
}

// HealthChecker reports whether the configuration store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config wires the handlers. Publisher, Store, Tracer and Metrics are optional.
type Config struct {
	Resolver           FormResolver
	Dispatcher         Dispatcher
	Formatter          *message.Formatter
	Provider           StatusProvider
	Store              HealthChecker
	Publisher          eventbus.EventPublisher
	Tracer             trace.Tracer
	Metrics            *metrics.RelayMetrics
	MissingCredentials func() []string
	Version            string
}

type Handlers struct {
	resolver   FormResolver
	dispatcher Dispatcher
	formatter  *message.Formatter
	provider   StatusProvider
	store      HealthChecker
	publisher  eventbus.EventPublisher
	tracer     trace.Tracer
	metrics    *metrics.RelayMetrics
	missing    func() []string
	version    string
	logger     *slog.Logger
}

func NewHandlers(cfg Config, logger *slog.Logger) *Handlers {
	h := &Handlers{
		resolver:   cfg.Resolver,
		dispatcher: cfg.Dispatcher,
		formatter:  cfg.Formatter,
		provider:   cfg.Provider,
		store:      cfg.Store,
		publisher:  cfg.Publisher,
		tracer:     cfg.Tracer,
		metrics:    cfg.Metrics,
		missing:    cfg.MissingCredentials,
		version:    cfg.Version,
		logger:     logger.With("module", "webhook"),
	}

	if h.formatter == nil {
		h.formatter = message.NewFormatter(message.DefaultTimezone)
	}

	if h.missing == nil {
		h.missing = func() []string { return nil }
	}

	if h.tracer == nil {
		h.tracer = otelhelper.Noop()
	}

	return h
}

// Webhook runs the submission pipeline for POST /webhook/:formId.
func (h *Handlers) Webhook(c fiber.Ctx) error {
	start := time.Now()
	formID := strings.Clone(c.Params("formId"))
	requestID := uuid.NewString()
	body := append([]byte(nil), c.Body()...)

	ctx, span := otelhelper.StartSpan(c.Context(), h.tracer, "webhook.process",
		attribute.String(otelhelper.FormIDKey, formID),
		attribute.String(otelhelper.RequestIDKey, requestID),
	)
	defer span.End()

	logger := h.logger.With("form_id", formID, "request_id", requestID)

	status, response := h.process(ctx, logger, formID, body, start)

	span.SetAttributes(attribute.Int(otelhelper.StatusCodeKey, status))
	if status >= http.StatusInternalServerError {
		otelhelper.SetError(span, errors.New("webhook processing failed"))
	}

	h.metrics.ObserveWebhook(metricsLabel(formID, status), status, time.Since(start).Seconds())
	h.record(ctx, logger, requestID, formID, status, body, response, start)

	return c.Status(status).JSON(response)
}

// metricsLabel keeps caller-chosen ids out of the metric labels unless the form resolved.
func metricsLabel(formID string, status int) string {
	if status == http.StatusNotFound || status >= http.StatusInternalServerError {
		return metrics.UnknownForm
	}

	return formID
}

func (h *Handlers) process(ctx context.Context, logger *slog.Logger, formID string, body []byte, start time.Time) (int, any) {
	data := extract.ParseBody(body)

	if missing := h.missing(); len(missing) > 0 {
		logger.ErrorContext(ctx, "Provider credentials are missing", "missing", missing)

		return http.StatusInternalServerError, ErrorResponse{
			Error:   "Configuration error",
			Message: "Missing required configuration: " + strings.Join(missing, ", "),
			Missing: missing,
		}
	}

	form, err := h.resolver.Resolve(ctx, formID)
	if err != nil {
		if errors.Is(err, forms.ErrFormNotFound) {
			logger.WarnContext(ctx, "Unknown form")

			return http.StatusNotFound, ErrorResponse{Error: "Form not found", Form: formID}
		}

		logger.ErrorContext(ctx, "Failed to resolve form", "error", err)

		return http.StatusInternalServerError, ErrorResponse{Error: "Internal error", Message: err.Error(), Form: formID}
	}

	extracted := extract.Extract(data, form.Fields)
	if len(extracted) == 0 {
		logger.WarnContext(ctx, "Submission has no recognized fields", "keys", len(data))

		return http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid form data",
			Message: "No recognized fields found in submission",
			Form:    formID,
		}
	}

	text := h.formatter.Format(extracted, form.Fields)
	phones := form.Phones()

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int(otelhelper.FieldCountKey, len(extracted)),
		attribute.Int(otelhelper.RecipientCountKey, len(phones)),
	)

	outcome := h.dispatcher.Dispatch(ctx, phones, text)
	ok, failed := outcome.Counts()

	status := http.StatusOK
	if !outcome.Success {
		status = http.StatusMultiStatus
	}

	logger.InfoContext(ctx, "Submission dispatched", "sent", ok, "failed", failed, "status", status)

	results := outcome.Results
	if results == nil {
		results = []dispatch.Result{}
	}

	return status, WebhookResponse{
		Success:  outcome.Success,
		Form:     formID,
		Message:  fmt.Sprintf("Mensagens enviadas: %d sucesso, %d falhas", ok, failed),
		Duration: fmt.Sprintf("%dms", time.Since(start).Milliseconds()),
		Results:  results,
	}
}

// record publishes the outcome for the webhook log. Failures never change the HTTP reply.
func (h *Handlers) record(
	ctx context.Context,
	logger *slog.Logger,
	requestID, formID string,
	status int,
	body []byte,
	response any,
	start time.Time,
) {
	if h.publisher == nil {
		return
	}

	encoded, err := json.Marshal(response)
	if err != nil {
		logger.WarnContext(ctx, "Failed to encode response for webhook log", "error", err)
	}

	event := events.SubmissionProcessed{
		BaseEvent:  events.NewBaseEvent(events.SubmissionProcessedEvent),
		RequestID:  requestID,
		FormID:     formID,
		Status:     events.StatusFor(status),
		StatusCode: status,
		Request:    truncate(string(body)),
		Response:   truncate(string(encoded)),
		DurationMS: time.Since(start).Milliseconds(),
	}

	if err := h.publisher.Publish(ctx, formID, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish submission event", "error", err)
	}
}

func truncate(s string) string {
	if len(s) <= maxLoggedBytes {
		return s
	}

	return s[:maxLoggedBytes]
}

// Health reports configuration, store and provider status for GET /health.
func (h *Handlers) Health(c fiber.Ctx) error {
	ctx := c.Context()
	healthy := true

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if missing := h.missing(); len(missing) > 0 {
		healthy = false
		response.Checks.Configuration = "missing: " + strings.Join(missing, ", ")
	} else {
		response.Checks.Configuration = "ok"
	}

	switch {
	case h.store == nil:
		response.Checks.Database = "not configured"
	default:
		if err := h.store.HealthCheck(ctx); err != nil {
			healthy = false
			response.Checks.Database = "error: " + err.Error()
		} else {
			response.Checks.Database = "ok"
		}
	}

	switch {
	case h.provider == nil || response.Checks.Configuration != "ok":
		healthy = false
		response.Checks.Provider = "not configured"
	default:
		status, err := h.provider.Status(ctx)
		if err != nil {
			healthy = false
			response.Checks.Provider = "error: " + err.Error()
			response.ZAPIDetails = fiber.Map{"error": err.Error()}

			break
		}

		response.ZAPIDetails = json.RawMessage(status.Raw)
		if len(status.Raw) == 0 {
			response.ZAPIDetails = status
		}

		if status.Connected {
			response.Checks.Provider = "connected"
		} else {
			healthy = false
			response.Checks.Provider = "disconnected"
		}
	}

	code := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	return c.Status(code).JSON(response)
}

// Root serves service metadata for GET /.
func (h *Handlers) Root(c fiber.Ctx) error {
	return c.JSON(ServiceInfo{
		Status:  "ok",
		Service: ServiceName,
		Version: h.version,
		Endpoints: map[string]string{
			"webhook": "POST /webhook/:formId",
			"health":  "GET /health",
			"metrics": "GET /metrics",
		},
	})
}
