// Package main provides the Taskflow API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/taskflow/pkg/cmd"
	"github.com/dukex/taskflow/pkg/log"
	"github.com/dukex/taskflow/pkg/metrics"
	"github.com/dukex/taskflow/pkg/otelhelper"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	flags := append(cmd.CommonFlags(), cmd.EngineFlags()...)
	flags = append(flags, &cli.IntFlag{
		Name:    "port",
		Aliases: []string{"p"},
		Usage:   "Port to run the API server on",
		Value:   defaultPort,
		Sources: cli.EnvVars("PORT"),
	})

	command := &cli.Command{
		Name:                  "taskflow-api",
		Usage:                 "Manage projects and workflows",
		EnableShellCompletion: true,
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Taskflow API")

			if command.Bool("tracing") {
				_, shutdown, err := otelhelper.NewTracer(ctx, "taskflow-api")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()
			}

			adapters, err := cmd.NewAdapters(cmd.AdapterConfigFromCommand(command), logger)
			if err != nil {
				return err
			}

			registry := cmd.NewRegistry(logger, adapters)

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), "taskflow-api", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			m := metrics.New()
			svc := cmd.NewServices(persistence, registry, logger)
			eng := cmd.NewEngine(svc, registry, cmd.ThrottleFromCommand(command), eventBus, m,
				cmd.EngineConfigFromCommand(command), logger)

			api := NewAPI(logger, svc, eng, registry, eventBus, m)
			app := api.App()

			go func() {
				<-ctx.Done()

				if err := app.Shutdown(); err != nil {
					logger.Error("Failed to shutdown API", "error", err)
				}
			}()

			return app.Listen(fmt.Sprintf(":%d", command.Int("port")))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}
