package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
)

// ActionRepository stores action records.
type ActionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewActionRepository(db *sql.DB, logger *slog.Logger) *ActionRepository {
	return &ActionRepository{db: db, logger: logger}
}

const actionColumns = `id, project_id, workflow_id, workflow_name, status, results, error, started_at, finished_at`

func (r *ActionRepository) Create(ctx context.Context, record *models.ActionRecord) error {
	resultsJSON, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	query := `INSERT INTO actions (` + actionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.ProjectID,
		record.WorkflowID,
		record.WorkflowName,
		record.Status,
		resultsJSON,
		record.Error,
		record.StartedAt,
		record.FinishedAt,
	)
	if err != nil {
		return persistence.NewActionError("Create", record.ID, err)
	}

	return nil
}

func (r *ActionRepository) GetByID(ctx context.Context, id string) (*models.ActionRecord, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE id = $1`

	record, err := scanAction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewActionError("GetByID", id, persistence.ErrActionNotFound)
		}

		return nil, persistence.NewActionError("GetByID", id, err)
	}

	return record, nil
}

// Finalize is a conditional update on the loading status, so two concurrent
// terminal transitions cannot both succeed.
func (r *ActionRepository) Finalize(ctx context.Context, record *models.ActionRecord) error {
	resultsJSON, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	query := `
		UPDATE actions
		SET status = $2, results = $3, error = $4, finished_at = $5
		WHERE id = $1 AND status = 'loading'
	`

	result, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Status,
		resultsJSON,
		record.Error,
		record.FinishedAt,
	)
	if err != nil {
		return persistence.NewActionError("Finalize", record.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		return nil
	}

	var exists bool

	err = r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM actions WHERE id = $1)", record.ID).Scan(&exists)
	if err != nil {
		return persistence.NewActionError("Finalize", record.ID, err)
	}

	if !exists {
		return persistence.NewActionError("Finalize", record.ID, persistence.ErrActionNotFound)
	}

	return persistence.NewActionError("Finalize", record.ID, persistence.ErrActionFinalized)
}

func (r *ActionRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]*models.ActionRecord, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE project_id = $1 ORDER BY started_at DESC`
	args := []any{projectID}

	if limit > 0 {
		query += ` LIMIT $2`

		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	records := make([]*models.ActionRecord, 0)

	for rows.Next() {
		record, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating actions: %w", err)
	}

	return records, nil
}

func scanAction(row scanner) (*models.ActionRecord, error) {
	var (
		record      models.ActionRecord
		resultsJSON []byte
		finishedAt  sql.NullTime
	)

	err := row.Scan(
		&record.ID,
		&record.ProjectID,
		&record.WorkflowID,
		&record.WorkflowName,
		&record.Status,
		&resultsJSON,
		&record.Error,
		&record.StartedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if resultsJSON != nil {
		err = json.Unmarshal(resultsJSON, &record.Results)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}
	}

	if finishedAt.Valid {
		record.FinishedAt = &finishedAt.Time
	}

	return &record, nil
}
