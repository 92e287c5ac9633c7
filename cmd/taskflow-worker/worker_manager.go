package main

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/dukex/taskflow/pkg/engine"
	"github.com/dukex/taskflow/pkg/eventbus"
	"github.com/dukex/taskflow/pkg/events"
	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
)

type projectSource interface {
	Proposed(ctx context.Context, id string, snapshot *models.Project) (*models.Project, error)
	FetchAll(ctx context.Context) ([]*models.Project, error)
}

type evaluator interface {
	Evaluate(ctx context.Context, project *models.Project) (*engine.Report, error)
}

// pruner drops expired throttle windows.
type pruner interface {
	Prune() int
}

// WorkerManager runs the engine for every project.changed event and,
// when a schedule is set, for every project on that schedule.
type WorkerManager struct {
	id            string
	projects      projectSource
	engine        evaluator
	eventBus      eventbus.EventBus
	sweepSchedule string
	pruner        pruner
	logger        *slog.Logger
}

type WorkerOption func(*WorkerManager)

// WithPruner prunes expired throttle windows after every sweep.
func WithPruner(p pruner) WorkerOption {
	return func(w *WorkerManager) {
		w.pruner = p
	}
}

func NewWorkerManager(
	id string,
	projects projectSource,
	engine evaluator,
	eventBus eventbus.EventBus,
	sweepSchedule string,
	logger *slog.Logger,
	opts ...WorkerOption,
) *WorkerManager {
	w := &WorkerManager{
		id:            id,
		projects:      projects,
		engine:        engine,
		eventBus:      eventBus,
		sweepSchedule: sweepSchedule,
		logger:        logger.With("module", "taskflow-worker", "worker_id", id),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start subscribes to the event bus and blocks until ctx is cancelled.
// Runs in flight observe the same cancellation.
func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	err := w.eventBus.Handle(events.ProjectChangedEvent, w.handleProjectChanged)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	if w.sweepSchedule != "" {
		scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

		_, err = scheduler.AddFunc(w.sweepSchedule, func() { w.sweep(ctx) })
		if err != nil {
			return err
		}

		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()

		w.logger.InfoContext(ctx, "Sweep scheduled", "schedule", w.sweepSchedule)
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	<-ctx.Done()

	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

// handleProjectChanged evaluates the event's snapshot, or the stored
// project when the event carries none. Returning an error redelivers it.
func (w *WorkerManager) handleProjectChanged(ctx context.Context, event any) error {
	changed, ok := event.(*events.ProjectChanged)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for ProjectChanged")

		return nil
	}

	logger := w.logger.With(
		"project_id", changed.ProjectID,
		"event_id", changed.ID,
		"source", changed.Source,
	)
	logger.InfoContext(ctx, "Processing project changed event")

	project, err := w.projects.Proposed(ctx, changed.ProjectID, changed.Snapshot)
	if err != nil {
		if persistence.IsProjectNotFound(err) {
			logger.WarnContext(ctx, "Dropping event for unknown project")

			return nil
		}

		logger.ErrorContext(ctx, "Failed to load project", "error", err)

		return err
	}

	report, err := w.engine.Evaluate(ctx, project)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to evaluate project", "error", err)

		return err
	}

	logReport(ctx, logger, report)

	return nil
}

// sweep evaluates every stored project once.
func (w *WorkerManager) sweep(ctx context.Context) {
	projects, err := w.projects.FetchAll(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to list projects for sweep", "error", err)

		return
	}

	w.logger.InfoContext(ctx, "Sweeping projects", "count", len(projects))

	for _, project := range projects {
		if ctx.Err() != nil {
			return
		}

		logger := w.logger.With("project_id", project.ID)

		report, err := w.engine.Evaluate(ctx, project)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to evaluate project", "error", err)

			continue
		}

		logReport(ctx, logger, report)
	}

	if w.pruner != nil {
		w.logger.DebugContext(ctx, "Pruned throttle windows", "count", w.pruner.Prune())
	}
}

func logReport(ctx context.Context, logger *slog.Logger, report *engine.Report) {
	failed := 0

	for _, run := range report.Runs {
		if run.Status == engine.RunStatusFailed {
			failed++
		}
	}

	logger.InfoContext(ctx, "Project evaluated",
		"triggers", len(report.Triggers),
		"throttled", report.Throttled,
		"runs", len(report.Runs),
		"failed", failed,
	)
}
