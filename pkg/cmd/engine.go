package cmd

import (
	"log/slog"
	"time"

	"github.com/dukex/taskflow/pkg/engine"
	"github.com/dukex/taskflow/pkg/eventbus"
	"github.com/dukex/taskflow/pkg/metrics"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/dukex/taskflow/pkg/registry"
	"github.com/dukex/taskflow/pkg/services"
)

// Services groups the service layer built over one persistence.
type Services struct {
	Projects  *services.Project
	Workflows *services.Workflow
	Actions   *services.ActionRecorder
}

func NewServices(p persistence.Persistence, reg *registry.Registry, logger *slog.Logger) *Services {
	return &Services{
		Projects:  services.NewProject(p, logger),
		Workflows: services.NewWorkflow(p, reg),
		Actions:   services.NewActionRecorder(p.ActionRepository(), nil, logger),
	}
}

type EngineConfig struct {
	NodeTimeout time.Duration
	RunTimeout  time.Duration
	Concurrency int
}

// NewEngine wires the scheduler, dispatcher and engine. A nil publisher
// disables run events.
func NewEngine(
	svc *Services,
	reg *registry.Registry,
	throttle engine.Throttle,
	publisher eventbus.EventPublisher,
	m *metrics.Metrics,
	cfg EngineConfig,
	logger *slog.Logger,
) *engine.Engine {
	dispatcher := engine.NewDispatcher(reg, logger,
		engine.WithNodeTimeout(cfg.NodeTimeout),
		engine.WithDispatcherMetrics(m),
	)

	scheduler := engine.NewScheduler(dispatcher, logger, engine.WithConcurrency(cfg.Concurrency))

	opts := []engine.Option{
		engine.WithMetrics(m),
		engine.WithRunTimeout(cfg.RunTimeout),
	}

	if publisher != nil {
		opts = append(opts, engine.WithPublisher(publisher))
	}

	return engine.New(svc.Projects, svc.Workflows, svc.Actions, throttle, scheduler, logger, opts...)
}
