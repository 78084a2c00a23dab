// Package monitor polls the messaging provider and alerts on connectivity transitions.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/eventbus"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/events"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/metrics"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/notify"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/zapi"
)

// DefaultKey identifies the Z-API instance in the state store.
const DefaultKey = "zapi"

// StatusPoller reports the provider connectivity.
type StatusPoller interface {
	Status(ctx context.Context) (*zapi.Status, error)
}

// Notifier delivers a transition alert.
type Notifier interface {
	Notify(ctx context.Context, alert notify.Alert) error
}

// StateStore persists the current snapshot and its history.
type StateStore = persistence.MonitoringRepository

// CheckResult summarizes one monitoring pass.
type CheckResult struct {
	Key          string    `json:"key"`
	Connected    bool      `json:"connected"`
	Session      bool      `json:"session"`
	Bootstrap    bool      `json:"bootstrap"`
	Transitioned bool      `json:"transitioned"`
	Alerted      bool      `json:"alerted"`
	AlertError   string    `json:"alert_error,omitempty"`
	PollError    string    `json:"poll_error,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

type Monitor struct {
	poller   StatusPoller
	store    StateStore
	notifier Notifier
	metrics  *metrics.RelayMetrics
	events   eventbus.EventPublisher
	logger   *slog.Logger
	key      string
	limit    int
	now      func() time.Time
}

type Option func(*Monitor)

func WithKey(key string) Option {
	return func(m *Monitor) {
		m.key = key
	}
}

func WithHistoryLimit(limit int) Option {
	return func(m *Monitor) {
		if limit > 0 {
			m.limit = limit
		}
	}
}

func WithMetrics(rm *metrics.RelayMetrics) Option {
	return func(m *Monitor) {
		m.metrics = rm
	}
}

// WithPublisher announces every recorded transition on the event bus.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(m *Monitor) {
		m.events = publisher
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// New builds a monitor. A nil notifier disables alerting.
func New(poller StatusPoller, store StateStore, notifier Notifier, logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		poller:   poller,
		store:    store,
		notifier: notifier,
		logger:   logger.With("module", "monitor"),
		key:      DefaultKey,
		limit:    models.MonitoringHistoryLimit,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Check polls the provider once, records transitions and alerts on them.
func (m *Monitor) Check(ctx context.Context) (*CheckResult, error) {
	now := m.now().UTC()
	current := m.poll(ctx, now)

	result := &CheckResult{
		Key:       m.key,
		Connected: current.Connected,
		Session:   current.Session,
		CheckedAt: now,
	}

	if current.pollErr != nil {
		result.PollError = current.pollErr.Error()
	}

	logger := m.logger.With("key", m.key, "connected", current.Connected)

	previous, err := m.store.LoadState(ctx, m.key)

	switch {
	case persistence.IsMonitoringStateNotFound(err):
		if err := m.record(ctx, &current.MonitoringState); err != nil {
			return nil, err
		}

		result.Bootstrap = true
		m.metrics.ObserveMonitorCheck(current.Connected, false)
		logger.InfoContext(ctx, "Recorded initial provider state")

		return result, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load monitoring state: %w", err)
	}

	if previous.Connected == current.Connected {
		m.metrics.ObserveMonitorCheck(current.Connected, false)
		logger.DebugContext(ctx, "Provider state unchanged")

		return result, nil
	}

	if err := m.record(ctx, &current.MonitoringState); err != nil {
		return nil, err
	}

	result.Transitioned = true
	m.metrics.ObserveMonitorCheck(current.Connected, true)
	logger.WarnContext(ctx, "Provider connectivity changed", "previous", previous.Connected)

	defer m.publish(ctx, result)

	if m.notifier == nil {
		return result, nil
	}

	alert := notify.Alert{
		Key:       m.key,
		Connected: current.Connected,
		Session:   current.Session,
		At:        now,
	}
	if current.pollErr != nil {
		alert.Detail = current.pollErr.Error()
	}

	if err := m.notifier.Notify(ctx, alert); err != nil {
		result.AlertError = err.Error()
		logger.ErrorContext(ctx, "Failed to deliver connectivity alert", "error", err)

		return result, nil
	}

	result.Alerted = true

	return result, nil
}

func (m *Monitor) publish(ctx context.Context, result *CheckResult) {
	if m.events == nil {
		return
	}

	event := events.ProviderStatusChanged{
		BaseEvent: events.NewBaseEvent(events.ProviderStatusChangedEvent),
		Key:       result.Key,
		Connected: result.Connected,
		Session:   result.Session,
		Alerted:   result.Alerted,
	}

	if err := m.events.Publish(ctx, result.Key, event); err != nil {
		m.logger.WarnContext(ctx, "Failed to publish provider status event", "error", err)
	}
}

type observation struct {
	models.MonitoringState
	pollErr error
}

func (m *Monitor) poll(ctx context.Context, now time.Time) observation {
	obs := observation{MonitoringState: models.MonitoringState{Key: m.key, LastChanged: now}}

	status, err := m.poller.Status(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "Provider status poll failed", "error", err)

		raw, _ := json.Marshal(map[string]any{"connected": false, "error": err.Error()})
		obs.Raw = raw
		obs.pollErr = err

		return obs
	}

	obs.Connected = status.Connected
	obs.Session = status.Session
	obs.Raw = status.Raw

	return obs
}

func (m *Monitor) record(ctx context.Context, state *models.MonitoringState) error {
	if err := m.store.SaveState(ctx, state); err != nil {
		return fmt.Errorf("failed to save monitoring state: %w", err)
	}

	entry := state.HistoryEntry()
	if err := m.store.AppendHistory(ctx, &entry, m.limit); err != nil {
		return fmt.Errorf("failed to append monitoring history: %w", err)
	}

	return nil
}
