package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/dukex/taskflow/pkg/trigger"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrProjectNotFound is returned when a project is not found.
	ErrProjectNotFound = persistence.ErrProjectNotFound
)

type Project struct {
	persistence persistence.Persistence
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewProject(persistence persistence.Persistence, logger *slog.Logger) *Project {
	return &Project{
		persistence: persistence,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("module", "project_service"),
	}
}

// FetchByID retrieves a project, couplings included.
func (p *Project) FetchByID(ctx context.Context, id string) (*models.Project, error) {
	return p.persistence.ProjectRepository().GetByID(ctx, id)
}

// FetchAll returns every stored project.
func (p *Project) FetchAll(ctx context.Context) ([]*models.Project, error) {
	projects, err := p.persistence.ProjectRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// GetProject lets the service act as the engine's project store.
func (p *Project) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return p.FetchByID(ctx, id)
}

// Save stores a project snapshot under id and reports how its tasks changed
// relative to the stored snapshot. Couplings are never changed by Save.
func (p *Project) Save(ctx context.Context, id string, project *models.Project) (*models.Project, trigger.Change, error) {
	if project == nil {
		return nil, trigger.Change{}, ErrProjectNil
	}

	if project.ID != "" && project.ID != id {
		return nil, trigger.Change{}, NewValidationError("Save", "ID_MISMATCH", fmt.Sprintf("body id %q, path id %q", project.ID, id), ErrIDMismatch)
	}

	project.ID = id

	err := p.validator.Struct(project)
	if err != nil {
		return nil, trigger.Change{}, NewValidationError("Save", "INVALID_PROJECT", err.Error(), ErrInvalidRequest)
	}

	previous, err := p.persistence.ProjectRepository().GetByID(ctx, id)

	switch {
	case err == nil:
		project.CreatedAt = previous.CreatedAt
	case persistence.IsProjectNotFound(err):
		previous = nil
	default:
		return nil, trigger.Change{}, err
	}

	change := trigger.DetectChange(previous, project)

	err = p.persistence.ProjectRepository().Save(ctx, project)
	if err != nil {
		return nil, trigger.Change{}, fmt.Errorf("failed to save project: %w", err)
	}

	p.logger.DebugContext(ctx, "Project saved",
		"project_id", id,
		"created", len(change.Created),
		"updated", len(change.Updated),
		"removed", len(change.Removed),
	)

	return project, change, nil
}

// Proposed overlays a proposed snapshot on the stored project. The stored
// couplings are kept; name, tasks and diagrams come from the snapshot.
func (p *Project) Proposed(ctx context.Context, id string, snapshot *models.Project) (*models.Project, error) {
	stored, err := p.persistence.ProjectRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if snapshot == nil {
		return stored, nil
	}

	proposed := *stored
	proposed.Tasks = snapshot.Tasks
	proposed.Diagrams = snapshot.Diagrams

	if snapshot.Name != "" {
		proposed.Name = snapshot.Name
	}

	return &proposed, nil
}

// Couple links a stored workflow to the project.
func (p *Project) Couple(ctx context.Context, projectID, workflowID string) (*models.Project, error) {
	_, err := p.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	err = p.persistence.ProjectRepository().Couple(ctx, projectID, workflowID)
	if err != nil {
		return nil, err
	}

	return p.FetchByID(ctx, projectID)
}

func (p *Project) Decouple(ctx context.Context, projectID, workflowID string) (*models.Project, error) {
	err := p.persistence.ProjectRepository().Decouple(ctx, projectID, workflowID)
	if err != nil {
		return nil, err
	}

	return p.FetchByID(ctx, projectID)
}
