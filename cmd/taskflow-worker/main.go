package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/taskflow/pkg/cmd"
	"github.com/dukex/taskflow/pkg/log"
	"github.com/dukex/taskflow/pkg/metrics"
	"github.com/dukex/taskflow/pkg/otelhelper"
)

func main() {
	flags := append(cmd.CommonFlags(), cmd.EngineFlags()...)
	flags = append(flags, cmd.WorkerFlags()...)

	command := &cli.Command{
		Name:                  "taskflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Run workflows for changed projects",
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("taskflow-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Taskflow Worker")

			if command.Bool("tracing") {
				_, shutdown, err := otelhelper.NewTracer(ctx, "taskflow-worker")
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

			eventBus := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), "taskflow-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			m := metrics.New()
			cmd.ServeMetrics(ctx, command.String("metrics-addr"), m, logger)

			throttle := cmd.ThrottleFromCommand(command)

			svc := cmd.NewServices(persistence, registry, logger)
			eng := cmd.NewEngine(svc, registry, throttle, eventBus, m,
				cmd.EngineConfigFromCommand(command), logger)

			var opts []WorkerOption
			if p, ok := throttle.(pruner); ok {
				opts = append(opts, WithPruner(p))
			}

			worker := NewWorkerManager(
				workerID,
				svc.Projects,
				eng,
				eventBus,
				command.String("sweep-schedule"),
				logger,
				opts...,
			)

			return worker.Start(ctx)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}
