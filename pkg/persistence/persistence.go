// Package persistence provides the storage abstraction for projects,
// workflows and action records.
package persistence

import (
	"context"

	"github.com/dukex/taskflow/pkg/models"
)

type Persistence interface {
	ProjectRepository() ProjectRepository
	WorkflowRepository() WorkflowRepository
	ActionRepository() ActionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ProjectRepository stores project snapshots and their workflow couplings.
// Save never changes couplings; use Couple and Decouple.
type ProjectRepository interface {
	GetAll(ctx context.Context) ([]*models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	Save(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error

	// Couple appends workflowID to the project's couplings. Coupling an
	// already coupled workflow is a no-op.
	Couple(ctx context.Context, projectID, workflowID string) error
	Decouple(ctx context.Context, projectID, workflowID string) error
}

type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

type ActionRepository interface {
	Create(ctx context.Context, record *models.ActionRecord) error
	GetByID(ctx context.Context, id string) (*models.ActionRecord, error)

	// Finalize stores the terminal state of a loading record. It fails with
	// ErrActionFinalized when the stored record already left the loading state.
	Finalize(ctx context.Context, record *models.ActionRecord) error

	// ListByProject returns the newest records first. A limit of zero or
	// less means no limit.
	ListByProject(ctx context.Context, projectID string, limit int) ([]*models.ActionRecord, error)
}
