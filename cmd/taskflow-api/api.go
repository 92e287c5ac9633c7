package main

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/dukex/taskflow/pkg/cmd"
	"github.com/dukex/taskflow/pkg/eventbus"
	"github.com/dukex/taskflow/pkg/metrics"
	"github.com/dukex/taskflow/pkg/registry"
	"github.com/dukex/taskflow/pkg/web"
)

type API struct {
	logger   *slog.Logger
	services *cmd.Services
	evaluate web.Evaluator
	registry *registry.Registry
	eventBus eventbus.EventPublisher
	metrics  *metrics.Metrics
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	services *cmd.Services,
	evaluate web.Evaluator,
	registry *registry.Registry,
	eventBus eventbus.EventPublisher,
	metrics *metrics.Metrics,
) *API {
	return &API{
		logger:   logger,
		services: services,
		evaluate: evaluate,
		registry: registry,
		eventBus: eventBus,
		metrics:  metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.services.Projects,
		a.services.Workflows,
		a.services.Actions,
		a.evaluate,
		a.eventBus,
		a.registry,
		a.validate,
		a.logger,
	)

	app := fiber.New()
	app.Use(recoverer.New())
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Taskflow API")
	})

	app.Get("/metrics", adaptor.HTTPHandler(a.metrics.Handler()))

	web.RegisterRoutes(app, handlers)

	return app
}
