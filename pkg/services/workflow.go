package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

// ConfigValidator checks node configurations against the registered executors.
type ConfigValidator interface {
	ValidateWorkflow(workflow *models.Workflow) error
}

type Workflow struct {
	persistence persistence.Persistence
	configs     ConfigValidator
	validator   *validator.Validate
}

// NewWorkflow creates a new workflow service. configs may be nil, in which
// case node configurations are not checked.
func NewWorkflow(persistence persistence.Persistence, configs ConfigValidator) *Workflow {
	return &Workflow{
		persistence: persistence,
		configs:     configs,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// FetchAll returns every workflow, newest first.
func (w *Workflow) FetchAll(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// GetWorkflow lets the service act as the engine's workflow store.
func (w *Workflow) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	return w.FetchByID(ctx, id)
}

// Validate checks struct constraints, graph structure and node
// configurations. Every problem is reported, joined.
func (w *Workflow) Validate(workflow *models.Workflow) error {
	if workflow == nil {
		return ErrWorkflowNil
	}

	err := w.validator.Struct(workflow)
	if err != nil {
		return NewValidationError("Validate", "INVALID_WORKFLOW", err.Error(), ErrInvalidRequest)
	}

	var errs []error

	if err := workflow.Validate(); err != nil {
		errs = append(errs, err)
	}

	if w.configs != nil {
		if err := w.configs.ValidateWorkflow(workflow); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return NewValidationError("Validate", "INVALID_WORKFLOW", errors.Join(errs...).Error(), ErrInvalidWorkflow)
	}

	return nil
}

// Save validates and stores the workflow under id, creating or replacing it.
func (w *Workflow) Save(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	if workflow.ID != "" && workflow.ID != id {
		return nil, NewValidationError("Save", "ID_MISMATCH", fmt.Sprintf("body id %q, path id %q", workflow.ID, id), ErrIDMismatch)
	}

	workflow.ID = id

	err := w.Validate(workflow)
	if err != nil {
		return nil, err
	}

	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, id)

	switch {
	case err == nil:
		workflow.CreatedAt = existing.CreatedAt
	case persistence.IsWorkflowNotFound(err):
	default:
		return nil, err
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, id string) error {
	_, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return err
	}

	return w.persistence.WorkflowRepository().Delete(ctx, id)
}
