package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
)

// ProjectRepository handles project snapshots and workflow couplings.
type ProjectRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewProjectRepository(db *sql.DB, logger *slog.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

// GetAll returns all projects ordered by creation time.
func (r *ProjectRepository) GetAll(ctx context.Context) ([]*models.Project, error) {
	query := `
		SELECT id, name, tasks, diagrams, created_at, updated_at
		FROM projects
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	projects := make([]*models.Project, 0)

	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}

		projects = append(projects, project)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	for _, project := range projects {
		project.WorkflowIDs, err = r.couplings(ctx, project.ID)
		if err != nil {
			return nil, persistence.NewProjectError("GetAll", project.ID, err)
		}
	}

	return projects, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `
		SELECT id, name, tasks, diagrams, created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	project, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewProjectError("GetByID", id, persistence.ErrProjectNotFound)
		}

		return nil, persistence.NewProjectError("GetByID", id, err)
	}

	project.WorkflowIDs, err = r.couplings(ctx, id)
	if err != nil {
		return nil, persistence.NewProjectError("GetByID", id, err)
	}

	return project, nil
}

// Save upserts the project snapshot. Couplings live in their own table and
// are left untouched; project.WorkflowIDs is refreshed from it.
func (r *ProjectRepository) Save(ctx context.Context, project *models.Project) error {
	now := time.Now().UTC()

	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}

	project.UpdatedAt = now

	tasks := project.Tasks
	if tasks == nil {
		tasks = make([]models.Task, 0)
	}

	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to marshal tasks: %w", err)
	}

	diagramsJSON, err := json.Marshal(project.Diagrams)
	if err != nil {
		return fmt.Errorf("failed to marshal diagrams: %w", err)
	}

	query := `
		INSERT INTO projects (id, name, tasks, diagrams, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			tasks = EXCLUDED.tasks,
			diagrams = EXCLUDED.diagrams,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`

	err = r.db.QueryRowContext(ctx, query,
		project.ID,
		project.Name,
		tasksJSON,
		diagramsJSON,
		project.CreatedAt,
		project.UpdatedAt,
	).Scan(&project.CreatedAt)
	if err != nil {
		return persistence.NewProjectError("Save", project.ID, err)
	}

	project.WorkflowIDs, err = r.couplings(ctx, project.ID)
	if err != nil {
		return persistence.NewProjectError("Save", project.ID, err)
	}

	return nil
}

// Delete removes the project and, through the foreign key, its couplings.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return persistence.NewProjectError("Delete", id, err)
	}

	return nil
}

func (r *ProjectRepository) Couple(ctx context.Context, projectID, workflowID string) error {
	exists, err := r.exists(ctx, projectID)
	if err != nil {
		return persistence.NewCouplingError("Couple", projectID, workflowID, err)
	}

	if !exists {
		return persistence.NewCouplingError("Couple", projectID, workflowID, persistence.ErrProjectNotFound)
	}

	query := `
		INSERT INTO project_workflows (project_id, workflow_id, position)
		SELECT $1, $2, COALESCE(MAX(position) + 1, 0)
		FROM project_workflows
		WHERE project_id = $1
		ON CONFLICT (project_id, workflow_id) DO NOTHING
	`

	_, err = r.db.ExecContext(ctx, query, projectID, workflowID)
	if err != nil {
		return persistence.NewCouplingError("Couple", projectID, workflowID, err)
	}

	return nil
}

func (r *ProjectRepository) Decouple(ctx context.Context, projectID, workflowID string) error {
	exists, err := r.exists(ctx, projectID)
	if err != nil {
		return persistence.NewCouplingError("Decouple", projectID, workflowID, err)
	}

	if !exists {
		return persistence.NewCouplingError("Decouple", projectID, workflowID, persistence.ErrProjectNotFound)
	}

	result, err := r.db.ExecContext(ctx,
		"DELETE FROM project_workflows WHERE project_id = $1 AND workflow_id = $2",
		projectID, workflowID,
	)
	if err != nil {
		return persistence.NewCouplingError("Decouple", projectID, workflowID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewCouplingError("Decouple", projectID, workflowID, persistence.ErrCouplingNotFound)
	}

	return nil
}

func (r *ProjectRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check project: %w", err)
	}

	return exists, nil
}

func (r *ProjectRepository) couplings(ctx context.Context, projectID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT workflow_id FROM project_workflows WHERE project_id = $1 ORDER BY position",
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query couplings: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflowIDs := make([]string, 0)

	for rows.Next() {
		var workflowID string

		err := rows.Scan(&workflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupling: %w", err)
		}

		workflowIDs = append(workflowIDs, workflowID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating couplings: %w", err)
	}

	return workflowIDs, nil
}

func scanProject(row scanner) (*models.Project, error) {
	var (
		project      models.Project
		tasksJSON    []byte
		diagramsJSON []byte
	)

	err := row.Scan(
		&project.ID,
		&project.Name,
		&tasksJSON,
		&diagramsJSON,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(tasksJSON, &project.Tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal tasks: %w", err)
	}

	if diagramsJSON != nil {
		err = json.Unmarshal(diagramsJSON, &project.Diagrams)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal diagrams: %w", err)
		}
	}

	return &project, nil
}
