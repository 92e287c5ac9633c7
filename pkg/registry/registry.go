// Package registry maps node subtypes to executor factories and validates
// node configuration against their schemas.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
)

var (
	ErrUnknownSubtype = errors.New("unknown node subtype")
	ErrInvalidConfig  = errors.New("invalid node configuration")
	ErrKindMismatch   = errors.New("node kind does not match its subtype")
)

type entry struct {
	factory protocol.NodeExecutorFactory
	schema  *gojsonschema.Schema
}

type Registry struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]entry
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:  log,
		entries: make(map[string]entry),
	}
}

// RegisterNode adds a factory, replacing any factory with the same ID.
func (r *Registry) RegisterNode(factory protocol.NodeExecutorFactory) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(factory.Schema()))
	if err != nil {
		return fmt.Errorf("failed to compile schema for %s: %w", factory.ID(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[factory.ID()] = entry{factory: factory, schema: schema}

	r.logger.Debug("Registered node", "subtype", factory.ID(), "kind", factory.Kind())

	return nil
}

func (r *Registry) lookup(subtype string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[subtype]

	return e, ok
}

// ValidateConfig checks a node configuration against the subtype's schema.
func (r *Registry) ValidateConfig(subtype string, config map[string]any) error {
	e, ok := r.lookup(subtype)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSubtype, subtype)
	}

	return validate(e, config)
}

func validate(e entry, config map[string]any) error {
	if config == nil {
		config = map[string]any{}
	}

	result, err := e.schema.Validate(gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		messages = append(messages, resultErr.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(messages, "; "))
}

// CreateNode validates the node against its factory and creates its executor.
func (r *Registry) CreateNode(ctx context.Context, node *models.Node) (protocol.NodeExecutor, error) {
	e, ok := r.lookup(node.Subtype)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubtype, node.Subtype)
	}

	if e.factory.Kind() != node.Kind {
		return nil, fmt.Errorf("%w: %q is %s, node declares %s",
			ErrKindMismatch, node.Subtype, e.factory.Kind(), node.Kind)
	}

	if err := validate(e, node.Config); err != nil {
		return nil, err
	}

	executor, err := e.factory.Create(ctx, node.ID, node.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return executor, nil
}

// ValidateWorkflow checks every node configuration of the workflow.
func (r *Registry) ValidateWorkflow(workflow *models.Workflow) error {
	var errs []error

	for _, node := range workflow.Nodes {
		if node == nil {
			continue
		}

		if err := r.ValidateConfig(node.Subtype, node.Config); err != nil {
			errs = append(errs, fmt.Errorf("node %q: %w", node.ID, err))
		}
	}

	return errors.Join(errs...)
}

// GetAvailableNodes returns every registered factory ordered by subtype.
func (r *Registry) GetAvailableNodes() []protocol.NodeExecutorFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factories := make([]protocol.NodeExecutorFactory, 0, len(r.entries))
	for _, e := range r.entries {
		factories = append(factories, e.factory)
	}

	slices.SortFunc(factories, func(a, b protocol.NodeExecutorFactory) int {
		return strings.Compare(a.ID(), b.ID())
	})

	return factories
}

// HealthCheck reports catalog subtypes without a registered factory.
func (r *Registry) HealthCheck(_ context.Context) error {
	var missing []string

	for _, subtype := range models.Subtypes() {
		if _, ok := r.lookup(subtype); !ok {
			missing = append(missing, subtype)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("no executor registered for %s", strings.Join(missing, ", "))
	}

	return nil
}
