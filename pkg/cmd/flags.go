package cmd

import (
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/taskflow/pkg/engine"
	"github.com/dukex/taskflow/pkg/throttle"
)

// CommonFlags are shared by every taskflow binary.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence (file path or postgres://)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (kafka, gochannel)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP (configured with OTEL_EXPORTER_OTLP_*)",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
	}
}

// EngineFlags configure the engine and the external service adapters.
func EngineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "throttle-url",
			Usage:   "Redis URL for a shared throttle (process-local when empty)",
			Sources: cli.EnvVars("THROTTLE_URL"),
		},
		&cli.DurationFlag{
			Name:    "throttle-cooldown",
			Usage:   "Minimum time between two evaluations of a project",
			Value:   throttle.DefaultCooldown,
			Sources: cli.EnvVars("THROTTLE_COOLDOWN"),
		},
		&cli.DurationFlag{
			Name:    "node-timeout",
			Usage:   "Timeout of a single node dispatch",
			Value:   engine.DefaultNodeTimeout,
			Sources: cli.EnvVars("NODE_TIMEOUT"),
		},
		&cli.DurationFlag{
			Name:    "run-timeout",
			Usage:   "Timeout of a whole workflow run",
			Value:   engine.DefaultRunTimeout,
			Sources: cli.EnvVars("RUN_TIMEOUT"),
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Usage:   "Independent nodes dispatched at a time within a run",
			Value:   1,
			Sources: cli.EnvVars("NODE_CONCURRENCY"),
		},
		&cli.StringFlag{
			Name:    "ai-provider",
			Usage:   "AI provider (openai, anthropic)",
			Value:   "openai",
			Sources: cli.EnvVars("AI_PROVIDER"),
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			Sources: cli.EnvVars("OPENAI_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "anthropic-api-key",
			Sources: cli.EnvVars("ANTHROPIC_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "ai-model",
			Usage:   "Model name passed to the AI provider",
			Sources: cli.EnvVars("AI_MODEL"),
		},
		&cli.StringFlag{
			Name:    "notion-token",
			Sources: cli.EnvVars("NOTION_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "notion-database-id",
			Usage:   "Default Notion database for task pages",
			Sources: cli.EnvVars("NOTION_DATABASE_ID"),
		},
		&cli.StringFlag{
			Name:    "slack-token",
			Sources: cli.EnvVars("SLACK_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "slack-channel",
			Usage:   "Default Slack channel for task updates",
			Sources: cli.EnvVars("SLACK_CHANNEL"),
		},
	}
}

// WorkerFlags configure the taskflow worker process.
func WorkerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "worker-id",
			Aliases: []string{"id"},
			Usage:   "Custom worker ID (auto-generated if not provided)",
			Sources: cli.EnvVars("WORKER_ID"),
		},
		&cli.StringFlag{
			Name:    "sweep-schedule",
			Usage:   "Cron schedule evaluating every project (disabled when empty)",
			Sources: cli.EnvVars("SWEEP_SCHEDULE"),
		},
		&cli.StringFlag{
			Name:    "metrics-addr",
			Usage:   "Address serving /metrics (disabled when empty)",
			Value:   ":9092",
			Sources: cli.EnvVars("METRICS_ADDR"),
		},
	}
}

func EngineConfigFromCommand(command *cli.Command) EngineConfig {
	return EngineConfig{
		NodeTimeout: command.Duration("node-timeout"),
		RunTimeout:  command.Duration("run-timeout"),
		Concurrency: int(command.Int("concurrency")),
	}
}

func AdapterConfigFromCommand(command *cli.Command) AdapterConfig {
	cfg := AdapterConfig{
		AIProvider:       command.String("ai-provider"),
		AIModel:          command.String("ai-model"),
		NotionToken:      command.String("notion-token"),
		NotionDatabaseID: command.String("notion-database-id"),
		SlackToken:       command.String("slack-token"),
		SlackChannel:     command.String("slack-channel"),
	}

	switch cfg.AIProvider {
	case "anthropic":
		cfg.AIAPIKey = command.String("anthropic-api-key")
	default:
		cfg.AIAPIKey = command.String("openai-api-key")
	}

	return cfg
}

// ThrottleFromCommand builds the throttle selected by the engine flags.
func ThrottleFromCommand(command *cli.Command) engine.Throttle {
	return NewThrottle(command.String("throttle-url"), command.Duration("throttle-cooldown"))
}
