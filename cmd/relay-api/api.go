// Package main provides the Elementor to WhatsApp relay server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/web"
)

type API struct {
	logger   *slog.Logger
	handlers *web.Handlers
	gatherer prometheus.Gatherer
	ready    func() bool
}

// NewAPI builds the server. ready drives /readyz; nil means always ready.
func NewAPI(
	logger *slog.Logger,
	handlers *web.Handlers,
	gatherer prometheus.Gatherer,
	ready func() bool,
) *API {
	if gatherer == nil {
		gatherer = prometheus.NewRegistry()
	}

	if ready == nil {
		ready = func() bool { return true }
	}

	return &API{
		logger:   logger,
		handlers: handlers,
		gatherer: gatherer,
		ready:    ready,
	}
}

func (a *API) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      web.ServiceName,
		ErrorHandler: web.ErrorHandler(a.logger),
	})
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(fiber.Ctx) bool { return a.ready() },
	}))

	app.Get("/", a.handlers.Root)
	app.Get("/health", a.handlers.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))
	app.Post("/webhook/:formId", a.handlers.Webhook)

	app.Use(web.NotFoundHandler)

	return app
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	a.logger.InfoContext(ctx, "Webhook server listening", "port", port)

	return app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	})
}
