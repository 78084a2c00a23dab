package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/cmd"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/dispatch"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/extract"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/forms"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/log"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/message"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/metrics"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/otelhelper"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/web"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/zapi"
)

func run(ctx context.Context, cfg Config) error {
	log.Setup(cfg.LogLevel, cfg.LogFormat)

	logger := log.WithModule("relay-api")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Initializing relay", "version", version)

	tracer, shutdownTracer, err := otelhelper.NewTracer(ctx, "relay-api", cfg.OTel)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	relayMetrics := metrics.NewRelayMetrics(registry)

	store, err := openStore(ctx, logger, cfg.Store)
	if err != nil {
		return err
	}

	if store != nil {
		defer func() {
			if err := store.Close(context.Background()); err != nil {
				logger.Error("Failed to close persistence", "error", err)
			}
		}()
	}

	eventBus, err := cmd.NewEventBus(cfg.EventBus, cfg.KafkaBrokers, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	if err := registerSubscribers(eventBus, store, logger); err != nil {
		return err
	}

	if err := eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	client := zapi.New(cfg.ZAPI)

	resolver, err := newResolver(logger, store, cfg)
	if err != nil {
		return err
	}

	handlerConfig := web.Config{
		Resolver: resolver,
		Dispatcher: dispatch.New(client, logger,
			dispatch.WithMaxConcurrency(cfg.DispatchConcurrency),
			dispatch.WithTracer(tracer),
			dispatch.WithMetrics(relayMetrics),
		),
		Formatter:          message.NewFormatter(cfg.Timezone),
		Provider:           client,
		Publisher:          eventBus,
		Tracer:             tracer,
		Metrics:            relayMetrics,
		MissingCredentials: cfg.ZAPI.Missing,
		Version:            version,
	}

	if store != nil {
		handlerConfig.Store = store
	}

	if cfg.Monitoring.Enabled {
		scheduler, closeState, err := startMonitoring(ctx, logger, cfg, client, store, relayMetrics, eventBus)
		if err != nil {
			return err
		}

		defer func() {
			scheduler.Stop()

			if err := closeState(); err != nil {
				logger.Error("Failed to close monitoring state store", "error", err)
			}
		}()
	}

	api := NewAPI(logger, web.NewHandlers(handlerConfig, logger), registry, func() bool {
		return len(cfg.ZAPI.Missing()) == 0
	})

	if err := api.Start(ctx, cfg.Port); err != nil {
		return fmt.Errorf("failed to start webhook server: %w", err)
	}

	logger.Info("Relay stopped")

	return nil
}

// openStore returns nil when no store is configured, leaving only the legacy forms available.
func openStore(ctx context.Context, logger *slog.Logger, cfg cmd.StoreConfig) (persistence.Persistence, error) {
	p, err := cmd.NewPersistence(ctx, logger, cfg)
	if err != nil {
		var missing *cmd.MissingConfigError
		if errors.As(err, &missing) {
			logger.WarnContext(ctx, "Configuration store disabled", "driver", missing.Driver, "missing", missing.Keys)

			return nil, nil
		}

		return nil, fmt.Errorf("failed to open configuration store: %w", err)
	}

	return p, nil
}

func newResolver(logger *slog.Logger, store persistence.Persistence, cfg Config) (*forms.Provider, error) {
	opts := []forms.Option{forms.WithLegacyRecipients(cfg.LegacyRecipients...)}

	if cfg.LegacyAliasesFile != "" {
		table, err := extract.LoadAliasTable(cfg.LegacyAliasesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load legacy aliases: %w", err)
		}

		opts = append(opts, forms.WithAliasTable(table))
	}

	var finder forms.Finder
	if store != nil {
		finder = store
	}

	return forms.NewProvider(finder, logger, opts...), nil
}
