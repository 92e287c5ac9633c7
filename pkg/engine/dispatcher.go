package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/taskflow/pkg/metrics"
	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/otelhelper"
	"github.com/dukex/taskflow/pkg/protocol"
)

// DefaultNodeTimeout bounds a single node dispatch.
const DefaultNodeTimeout = 30 * time.Second

// NodeRegistry creates executors for workflow nodes.
type NodeRegistry interface {
	CreateNode(ctx context.Context, node *models.Node) (protocol.NodeExecutor, error)
}

// Dispatcher runs one node through the executor registered for its
// subtype. It persists nothing.
type Dispatcher struct {
	registry NodeRegistry
	timeout  time.Duration
	clock    clockwork.Clock
	tracer   trace.Tracer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type DispatcherOption func(*Dispatcher)

// WithNodeTimeout sets the per-node timeout. Zero disables it.
func WithNodeTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

func WithDispatcherClock(clock clockwork.Clock) DispatcherOption {
	return func(d *Dispatcher) {
		d.clock = clock
	}
}

func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithDispatcherTracer(tracer trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

func NewDispatcher(registry NodeRegistry, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		timeout:  DefaultNodeTimeout,
		clock:    clockwork.NewRealClock(),
		tracer:   otelhelper.Tracer("taskflow/engine"),
		logger:   logger.With("component", "dispatcher"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch executes node and returns its result. A non-nil error is always
// a *ConfigurationError; adapter failures are reported through a result
// with Success false.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	workflowID string,
	node *models.Node,
	execCtx *models.ExecutionContext,
	prior protocol.Prior,
) (models.NodeResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "node.dispatch",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.RunIDKey, execCtx.ID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeSubtypeKey, node.Subtype),
	)
	defer span.End()

	logger := d.logger.With("workflow_id", workflowID, "run_id", execCtx.ID, "node_id", node.ID, "subtype", node.Subtype)
	startedAt := d.clock.Now()

	executor, err := d.registry.CreateNode(ctx, node)
	if err != nil {
		configErr := &ConfigurationError{
			WorkflowID: workflowID,
			NodeID:     node.ID,
			Reason:     err.Error(),
			Err:        err,
		}

		logger.ErrorContext(ctx, "Node configuration rejected", "error", err)
		otelhelper.SetError(span, configErr)

		return models.NodeResult{
			NodeID:     node.ID,
			Success:    false,
			Message:    err.Error(),
			Error:      err.Error(),
			StartedAt:  startedAt,
			FinishedAt: d.clock.Now(),
		}, configErr
	}

	nodeCtx := ctx

	if d.timeout > 0 {
		var cancel context.CancelFunc

		nodeCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	result := executor.Execute(nodeCtx, execCtx, prior)
	result.NodeID = node.ID
	result.StartedAt = startedAt
	result.FinishedAt = d.clock.Now()

	duration := result.FinishedAt.Sub(startedAt)
	d.metrics.RecordNode(node.Subtype, result.Success, duration)

	if !result.Success {
		logger.WarnContext(ctx, "Node failed", "message", result.Message, "duration", duration)
		span.SetAttributes(attribute.String("taskflow.node.message", result.Message))
		otelhelper.SetError(span, &NodeFailedError{NodeID: node.ID, Message: result.Message})

		return result, nil
	}

	logger.DebugContext(ctx, "Node dispatched", "message", result.Message, "duration", duration)

	return result, nil
}
