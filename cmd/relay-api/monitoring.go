package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/cmd"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/eventbus"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/metrics"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/monitor"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/notify"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/zapi"
)

var errNoStateStore = errors.New("monitoring requires MONITOR_STATE_URL or a configuration store")

func startMonitoring(
	ctx context.Context,
	logger *slog.Logger,
	cfg Config,
	client *zapi.Client,
	store persistence.Persistence,
	relayMetrics *metrics.RelayMetrics,
	publisher eventbus.EventPublisher,
) (*monitor.Scheduler, func() error, error) {
	var fallback persistence.MonitoringRepository
	if store != nil {
		fallback = store
	}

	state, closeState, err := cmd.NewStateStore(ctx, logger, cfg.Monitoring.StateURL, fallback)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open monitoring state store: %w", err)
	}

	if state == nil {
		return nil, nil, errNoStateStore
	}

	alerter, err := newAlerter(logger, cfg, client)
	if err != nil {
		_ = closeState()

		return nil, nil, err
	}

	mon := monitor.New(client, state, alerter, logger,
		monitor.WithMetrics(relayMetrics),
		monitor.WithPublisher(publisher),
	)

	scheduler, err := monitor.NewScheduler(mon, cfg.Monitoring.Schedule, logger)
	if err != nil {
		_ = closeState()

		return nil, nil, err
	}

	if err := scheduler.Start(ctx); err != nil {
		_ = closeState()

		return nil, nil, err
	}

	return scheduler, closeState, nil
}

// newAlerter prefers SendGrid, then SMTP, and always keeps the WhatsApp backup when a phone is set.
func newAlerter(logger *slog.Logger, cfg Config, client *zapi.Client) (*notify.Alerter, error) {
	alertCfg := notify.AlerterConfig{
		EmailTo:  cfg.Monitoring.AlertEmail,
		WhatsApp: client,
		Phone:    cfg.Monitoring.AlertPhone,
		Location: location(cfg.Timezone),
	}

	switch {
	case cfg.Monitoring.SendGrid.APIKey != "":
		alertCfg.Email = notify.NewSendGridSender(cfg.Monitoring.SendGrid, logger)
	case cfg.Monitoring.SMTP.Host != "":
		sender, err := notify.NewSMTPSender(cfg.Monitoring.SMTP, logger)
		if err != nil {
			return nil, err
		}

		alertCfg.Email = sender
	default:
		logger.Warn("No email sender configured, alerts go to WhatsApp only")
	}

	return notify.NewAlerter(alertCfg, logger), nil
}

func location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}

	return loc
}
