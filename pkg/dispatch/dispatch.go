// Package dispatch fans a message out to every recipient through the messaging provider.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/metrics"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const DefaultMaxConcurrency = 10

// Sender delivers one text message to one phone number.
type Sender interface {
	SendText(ctx context.Context, phone, message string) (map[string]any, error)
}

// Result is the outcome of one send.
type Result struct {
	Phone    string `json:"phone"`
	Success  bool   `json:"success"`
	Response any    `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Outcome aggregates every send of one dispatch.
type Outcome struct {
	Success bool     `json:"success"`
	Results []Result `json:"results"`
}

// Counts returns the number of successful and failed sends.
func (o Outcome) Counts() (int, int) {
	var ok, failed int

	for _, r := range o.Results {
		if r.Success {
			ok++
		} else {
			failed++
		}
	}

	return ok, failed
}

// Dispatcher sends each message to every recipient exactly once.
type Dispatcher struct {
	sender         Sender
	maxConcurrency int
	logger         *slog.Logger
	tracer         trace.Tracer
	metrics        *metrics.RelayMetrics
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

func WithMaxConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxConcurrency = n
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

func WithMetrics(m *metrics.RelayMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func New(sender Sender, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:         sender,
		maxConcurrency: DefaultMaxConcurrency,
		logger:         logger.With("module", "dispatcher"),
		tracer:         otelhelper.Noop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch sends message to every phone concurrently and waits for all sends to settle.
// A failed send never cancels its siblings. Results keep the order of phones.
func (d *Dispatcher) Dispatch(ctx context.Context, phones []string, message string) Outcome {
	results := make([]Result, len(phones))

	var g errgroup.Group
	g.SetLimit(d.maxConcurrency)

	for i, phone := range phones {
		g.Go(func() error {
			results[i] = d.send(ctx, phone, message)

			return nil
		})
	}

	_ = g.Wait()

	outcome := Outcome{Success: true, Results: results}

	for _, r := range results {
		if !r.Success {
			outcome.Success = false

			break
		}
	}

	return outcome
}

func (d *Dispatcher) send(ctx context.Context, phone, message string) Result {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "dispatch.send", attribute.String(otelhelper.RecipientKey, phone))
	defer span.End()

	response, err := d.sender.SendText(ctx, phone, message)
	d.metrics.ObserveSend(err == nil)

	if err != nil {
		otelhelper.SetError(span, err)
		d.logger.ErrorContext(ctx, "Failed to send message", "phone", phone, "error", err)

		return Result{Phone: phone, Success: false, Error: err.Error()}
	}

	d.logger.InfoContext(ctx, "Message sent", "phone", phone)

	return Result{Phone: phone, Success: true, Response: response}
}
