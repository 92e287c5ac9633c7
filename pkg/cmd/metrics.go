package cmd

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/dukex/taskflow/pkg/metrics"
)

// NewMetricsApp serves the collectors of m on /metrics.
func NewMetricsApp(m *metrics.Metrics) *fiber.App {
	app := fiber.New()
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	return app
}

// ServeMetrics exposes m on addr until ctx is cancelled. An empty addr
// disables the listener.
func ServeMetrics(ctx context.Context, addr string, m *metrics.Metrics, logger *slog.Logger) {
	if addr == "" {
		return
	}

	app := NewMetricsApp(m)

	go func() {
		<-ctx.Done()

		if err := app.Shutdown(); err != nil {
			logger.Error("Failed to shutdown metrics listener", "error", err)
		}
	}()

	go func() {
		logger.InfoContext(ctx, "Serving metrics", "addr", addr)

		if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			logger.ErrorContext(ctx, "Metrics listener stopped", "error", err)
		}
	}()
}
