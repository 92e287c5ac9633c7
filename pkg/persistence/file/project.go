package file

import (
	"context"
	"errors"
	"io/fs"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
)

// ProjectRepository stores one JSON document per project, couplings included.
type ProjectRepository struct {
	root string
	mu   sync.RWMutex
}

func NewProjectRepository(root string) *ProjectRepository {
	return &ProjectRepository{root: root}
}

// GetAll returns all projects ordered by creation time.
func (r *ProjectRepository) GetAll(ctx context.Context) ([]*models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, err := listIDs(r.root, projectsDir)
	if err != nil {
		return nil, err
	}

	projects := make([]*models.Project, 0, len(ids))

	for _, id := range ids {
		project, err := r.load(id)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return nil, persistence.NewProjectError("GetAll", id, err)
		}

		projects = append(projects, project)
	}

	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})

	return projects, nil
}

func (r *ProjectRepository) GetByID(_ context.Context, id string) (*models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, err := r.load(id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewProjectError("GetByID", id, persistence.ErrProjectNotFound)
		}

		return nil, persistence.NewProjectError("GetByID", id, err)
	}

	return project, nil
}

// Save stores the project snapshot. The stored couplings are kept regardless
// of project.WorkflowIDs, which is refreshed from the stored document.
func (r *ProjectRepository) Save(_ context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	existing, err := r.load(project.ID)

	switch {
	case err == nil:
		project.WorkflowIDs = existing.WorkflowIDs
		if project.CreatedAt.IsZero() {
			project.CreatedAt = existing.CreatedAt
		}
	case errors.Is(err, fs.ErrNotExist):
		project.WorkflowIDs = make([]string, 0)
	default:
		return persistence.NewProjectError("Save", project.ID, err)
	}

	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}

	project.UpdatedAt = now

	err = writeJSON(r.root, projectsDir, project.ID, project)
	if err != nil {
		return persistence.NewProjectError("Save", project.ID, err)
	}

	return nil
}

func (r *ProjectRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := removeJSON(r.root, projectsDir, id)
	if err != nil {
		return persistence.NewProjectError("Delete", id, err)
	}

	return nil
}

func (r *ProjectRepository) Couple(_ context.Context, projectID, workflowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	project, err := r.loadForUpdate("Couple", projectID, workflowID)
	if err != nil {
		return err
	}

	if project.IsCoupled(workflowID) {
		return nil
	}

	project.WorkflowIDs = append(project.WorkflowIDs, workflowID)

	return r.store("Couple", project, workflowID)
}

func (r *ProjectRepository) Decouple(_ context.Context, projectID, workflowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	project, err := r.loadForUpdate("Decouple", projectID, workflowID)
	if err != nil {
		return err
	}

	idx := slices.Index(project.WorkflowIDs, workflowID)
	if idx < 0 {
		return persistence.NewCouplingError("Decouple", projectID, workflowID, persistence.ErrCouplingNotFound)
	}

	project.WorkflowIDs = slices.Delete(project.WorkflowIDs, idx, idx+1)

	return r.store("Decouple", project, workflowID)
}

func (r *ProjectRepository) loadForUpdate(op, projectID, workflowID string) (*models.Project, error) {
	project, err := r.load(projectID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewCouplingError(op, projectID, workflowID, persistence.ErrProjectNotFound)
		}

		return nil, persistence.NewCouplingError(op, projectID, workflowID, err)
	}

	return project, nil
}

func (r *ProjectRepository) store(op string, project *models.Project, workflowID string) error {
	project.UpdatedAt = time.Now().UTC()

	err := writeJSON(r.root, projectsDir, project.ID, project)
	if err != nil {
		return persistence.NewCouplingError(op, project.ID, workflowID, err)
	}

	return nil
}

func (r *ProjectRepository) load(id string) (*models.Project, error) {
	var project models.Project

	err := readJSON(r.root, projectsDir, id, &project)
	if err != nil {
		return nil, err
	}

	if project.WorkflowIDs == nil {
		project.WorkflowIDs = make([]string, 0)
	}

	return &project, nil
}
