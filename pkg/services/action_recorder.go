package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrActionFinalized is returned by a second terminal transition.
var ErrActionFinalized = persistence.ErrActionFinalized

// ActionRecorder persists the audit trail of workflow runs. A record is
// created in the loading state and moves to completed or error exactly once.
type ActionRecorder struct {
	actions persistence.ActionRepository
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewActionRecorder creates a recorder. A nil clock means the real clock.
func NewActionRecorder(actions persistence.ActionRepository, clock clockwork.Clock, logger *slog.Logger) *ActionRecorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &ActionRecorder{
		actions: actions,
		clock:   clock,
		logger:  logger.With("module", "action_recorder"),
	}
}

// Begin creates a loading record and returns its id.
func (r *ActionRecorder) Begin(ctx context.Context, projectID, workflowID, workflowName string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate action ID: %w", err)
	}

	record := &models.ActionRecord{
		ID:           id.String(),
		ProjectID:    projectID,
		WorkflowID:   workflowID,
		WorkflowName: workflowName,
		Status:       models.ActionStatusLoading,
		StartedAt:    r.clock.Now().UTC(),
	}

	err = r.actions.Create(ctx, record)
	if err != nil {
		return "", fmt.Errorf("failed to create action record: %w", err)
	}

	r.logger.DebugContext(ctx, "Action started", "action_id", record.ID, "workflow_id", workflowID)

	return record.ID, nil
}

func (r *ActionRecorder) Complete(ctx context.Context, id string, results map[string]models.NodeResult) error {
	return r.finalize(ctx, id, models.ActionStatusCompleted, "", results)
}

// Fail records runErr as the first fatal error of the run.
func (r *ActionRecorder) Fail(ctx context.Context, id string, runErr error, results map[string]models.NodeResult) error {
	message := "unknown error"
	if runErr != nil {
		message = runErr.Error()
	}

	return r.finalize(ctx, id, models.ActionStatusError, message, results)
}

func (r *ActionRecorder) finalize(
	ctx context.Context,
	id string,
	status models.ActionStatus,
	message string,
	results map[string]models.NodeResult,
) error {
	record, err := r.actions.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if record.IsTerminal() {
		return persistence.NewActionError("Finalize", id, ErrActionFinalized)
	}

	finishedAt := r.clock.Now().UTC()

	record.Status = status
	record.Error = message
	record.Results = results
	record.FinishedAt = &finishedAt

	err = r.actions.Finalize(ctx, record)
	if err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "Action finished", "action_id", id, "status", status)

	return nil
}

// History lists the project's records, newest first.
func (r *ActionRecorder) History(ctx context.Context, projectID string, limit int) ([]*models.ActionRecord, error) {
	records, err := r.actions.ListByProject(ctx, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}

	return records, nil
}

// Get returns a single action record.
func (r *ActionRecorder) Get(ctx context.Context, id string) (*models.ActionRecord, error) {
	return r.actions.GetByID(ctx, id)
}
