// Package engine decides whether a project's workflows fire and runs them.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/taskflow/pkg/eventbus"
	"github.com/dukex/taskflow/pkg/events"
	"github.com/dukex/taskflow/pkg/metrics"
	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/otelhelper"
	"github.com/dukex/taskflow/pkg/trigger"
)

// DefaultRunTimeout bounds a single workflow run.
const DefaultRunTimeout = 5 * time.Minute

// finalizeTimeout bounds the terminal record write and run event publish,
// which outlive cancellation of the run itself.
const finalizeTimeout = 10 * time.Second

type ProjectStore interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)
}

// WorkflowStore returns ErrWorkflowNotFound, possibly wrapped, for unknown ids.
type WorkflowStore interface {
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
}

type ActionRecorder interface {
	Begin(ctx context.Context, projectID, workflowID, workflowName string) (string, error)
	Complete(ctx context.Context, id string, results map[string]models.NodeResult) error
	Fail(ctx context.Context, id string, runErr error, results map[string]models.NodeResult) error
}

// Throttle checks and marks a project's execution window in one step.
type Throttle interface {
	ShouldThrottle(ctx context.Context, projectID string) (bool, error)
}

// RunStatus is the outcome of one workflow within an evaluation.
type RunStatus string

const (
	RunStatusSkipped   RunStatus = "skipped"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "error"
)

// RunReport describes one coupled workflow of an evaluation.
type RunReport struct {
	RunID        string    `json:"run_id,omitempty"`
	ActionID     string    `json:"action_id,omitempty"`
	WorkflowID   string    `json:"workflow_id"`
	WorkflowName string    `json:"workflow_name,omitempty"`
	Status       RunStatus `json:"status"`
	Results      Results   `json:"results,omitempty"`
	Error        string    `json:"error,omitempty"`
	NodeID       string    `json:"node_id,omitempty"`
}

// Report is the outcome of evaluating a project.
type Report struct {
	ProjectID string            `json:"project_id"`
	Triggers  models.TriggerSet `json:"triggers"`
	Throttled bool              `json:"throttled"`
	Runs      []RunReport       `json:"runs"`
}

type Engine struct {
	projects   ProjectStore
	workflows  WorkflowStore
	recorder   ActionRecorder
	throttle   Throttle
	scheduler  *Scheduler
	publisher  eventbus.EventPublisher
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	clock      clockwork.Clock
	runTimeout time.Duration
	logger     *slog.Logger
}

type Option func(*Engine)

// WithPublisher publishes workflow.run.* events after each run.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) {
		e.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithRunTimeout bounds each workflow run. Zero disables it.
func WithRunTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		e.runTimeout = timeout
	}
}

func New(
	projects ProjectStore,
	workflows WorkflowStore,
	recorder ActionRecorder,
	throttle Throttle,
	scheduler *Scheduler,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		projects:   projects,
		workflows:  workflows,
		recorder:   recorder,
		throttle:   throttle,
		scheduler:  scheduler,
		tracer:     otelhelper.Tracer("taskflow/engine"),
		clock:      clockwork.NewRealClock(),
		runTimeout: DefaultRunTimeout,
		logger:     logger.With("module", "engine"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// HandleProject loads the project and evaluates it.
func (e *Engine) HandleProject(ctx context.Context, projectID string) (*Report, error) {
	project, err := e.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return e.Evaluate(ctx, project)
}

// Evaluate detects the project's triggers, applies the throttle and runs
// every coupled workflow in coupling order. A failing workflow never stops
// its siblings; the returned error only covers the throttle itself.
func (e *Engine) Evaluate(ctx context.Context, project *models.Project) (*Report, error) {
	triggers := trigger.Detect(project)
	report := &Report{
		ProjectID: project.ID,
		Triggers:  triggers,
		Runs:      make([]RunReport, 0, len(project.WorkflowIDs)),
	}

	logger := e.logger.With("project_id", project.ID)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "project.evaluate",
		attribute.String(otelhelper.ProjectIDKey, project.ID),
		attribute.StringSlice(otelhelper.TriggersKey, triggerNames(triggers)),
	)
	defer span.End()

	if triggers.Empty() {
		logger.DebugContext(ctx, "No triggers detected")
		e.metrics.RecordEvaluation("no_triggers")

		return report, nil
	}

	throttled, err := e.throttle.ShouldThrottle(ctx, project.ID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to check throttle", "error", err)
		otelhelper.SetError(span, err)
		e.metrics.RecordEvaluation("throttle_error")

		return nil, err
	}

	if throttled {
		logger.InfoContext(ctx, "Project evaluation throttled")
		e.metrics.RecordThrottled()
		e.metrics.RecordEvaluation("throttled")

		report.Throttled = true

		return report, nil
	}

	e.metrics.RecordEvaluation("evaluated")

	for _, workflowID := range project.WorkflowIDs {
		report.Runs = append(report.Runs, e.runWorkflow(ctx, project, triggers, workflowID))
	}

	return report, nil
}

func (e *Engine) runWorkflow(
	ctx context.Context,
	project *models.Project,
	triggers models.TriggerSet,
	workflowID string,
) RunReport {
	logger := e.logger.With("project_id", project.ID, "workflow_id", workflowID)
	run := RunReport{WorkflowID: workflowID}

	workflow, err := e.workflows.GetWorkflow(ctx, workflowID)
	if err != nil {
		runErr := err
		if errors.Is(err, ErrWorkflowNotFound) {
			runErr = &ConfigurationError{WorkflowID: workflowID, Reason: "workflow not found", Err: err}
		}

		logger.ErrorContext(ctx, "Failed to load workflow", "error", err)

		return e.failWithoutRun(ctx, logger, project.ID, run, runErr)
	}

	run.WorkflowName = workflow.Name

	if len(FiredInputs(workflow, triggers)) == 0 {
		logger.DebugContext(ctx, "No input node fired")

		run.Status = RunStatusSkipped

		return run
	}

	actionID, err := e.recorder.Begin(ctx, project.ID, workflow.ID, workflow.Name)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to begin action record", "error", err)

		run.Status = RunStatusFailed
		run.Error = err.Error()

		return run
	}

	run.ActionID = actionID
	run.RunID = uuid.New().String()
	logger = logger.With("action_id", actionID, "run_id", run.RunID)

	execCtx := &models.ExecutionContext{
		ID:          run.RunID,
		WorkflowID:  workflow.ID,
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Tasks:       append([]models.Task(nil), project.Tasks...),
		Diagrams:    project.Diagrams,
		Triggers:    triggers,
	}

	runCtx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.ProjectIDKey, project.ID),
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.RunIDKey, run.RunID),
		attribute.String(otelhelper.ActionIDKey, actionID),
	)
	defer span.End()

	if e.runTimeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(runCtx, e.runTimeout)
		defer cancel()
	}

	logger.InfoContext(ctx, "Running workflow")

	startedAt := e.clock.Now()
	results, runErr := e.scheduler.Run(runCtx, workflow, execCtx)
	duration := e.clock.Since(startedAt)

	run.Results = results

	finalCtx, cancelFinal := finalContext(ctx)
	defer cancelFinal()

	if runErr != nil {
		logger.ErrorContext(ctx, "Workflow run failed", "error", runErr, "node_id", FailedNodeID(runErr))
		otelhelper.SetError(span, runErr, attribute.String(otelhelper.NodeIDKey, FailedNodeID(runErr)))

		run.Status = RunStatusFailed
		run.Error = runErr.Error()
		run.NodeID = FailedNodeID(runErr)

		if err := e.recorder.Fail(finalCtx, actionID, runErr, results); err != nil {
			logger.ErrorContext(ctx, "Failed to record action failure", "error", err)
		}
	} else {
		logger.InfoContext(ctx, "Workflow run completed", "nodes", len(results), "duration", duration)

		run.Status = RunStatusCompleted

		if err := e.recorder.Complete(finalCtx, actionID, results); err != nil {
			logger.ErrorContext(ctx, "Failed to record action completion", "error", err)
		}
	}

	e.metrics.RecordRun(string(run.Status), duration)
	e.publish(finalCtx, logger, project.ID, run, duration)

	return run
}

// failWithoutRun records a run that failed before scheduling.
func (e *Engine) failWithoutRun(
	ctx context.Context,
	logger *slog.Logger,
	projectID string,
	run RunReport,
	runErr error,
) RunReport {
	run.Status = RunStatusFailed
	run.Error = runErr.Error()

	actionID, err := e.recorder.Begin(ctx, projectID, run.WorkflowID, "")
	if err != nil {
		logger.ErrorContext(ctx, "Failed to begin action record", "error", err)

		return run
	}

	run.ActionID = actionID

	finalCtx, cancelFinal := finalContext(ctx)
	defer cancelFinal()

	if err := e.recorder.Fail(finalCtx, actionID, runErr, nil); err != nil {
		logger.ErrorContext(ctx, "Failed to record action failure", "error", err)
	}

	e.metrics.RecordRun(string(run.Status), 0)
	e.publish(finalCtx, logger, projectID, run, 0)

	return run
}

func (e *Engine) publish(ctx context.Context, logger *slog.Logger, projectID string, run RunReport, duration time.Duration) {
	if e.publisher == nil {
		return
	}

	var event eventbus.Event

	switch run.Status {
	case RunStatusCompleted:
		event = events.WorkflowRunCompleted{
			BaseEvent:    events.NewBaseEvent(events.WorkflowRunCompletedEvent, projectID),
			RunID:        run.RunID,
			ActionID:     run.ActionID,
			WorkflowID:   run.WorkflowID,
			WorkflowName: run.WorkflowName,
			Results:      run.Results,
			Duration:     duration,
		}
	case RunStatusFailed:
		event = events.WorkflowRunFailed{
			BaseEvent:    events.NewBaseEvent(events.WorkflowRunFailedEvent, projectID),
			RunID:        run.RunID,
			ActionID:     run.ActionID,
			WorkflowID:   run.WorkflowID,
			WorkflowName: run.WorkflowName,
			NodeID:       run.NodeID,
			Error:        run.Error,
			Results:      run.Results,
			Duration:     duration,
		}
	default:
		return
	}

	if err := e.publisher.Publish(ctx, projectID, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish run event", "error", err, "event_type", event.GetType())
	}
}

// finalContext keeps the values of ctx but not its cancellation, so a run
// interrupted by shutdown still reaches a terminal record.
func finalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
}

func triggerNames(triggers models.TriggerSet) []string {
	names := make([]string, 0, len(triggers))
	for _, kind := range triggers.Kinds() {
		names = append(names, string(kind))
	}

	return names
}
