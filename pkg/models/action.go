package models

import "time"

// ActionStatus is the state of an action record.
type ActionStatus string

const (
	ActionStatusLoading   ActionStatus = "loading"
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusError     ActionStatus = "error"
)

// ActionRecord is the audit trail of one workflow run. It transitions from
// loading to exactly one of completed or error.
type ActionRecord struct {
	ID           string                `json:"id"`
	ProjectID    string                `json:"project_id"`
	WorkflowID   string                `json:"workflow_id"`
	WorkflowName string                `json:"workflow_name"`
	Status       ActionStatus          `json:"status"`
	Results      map[string]NodeResult `json:"results,omitempty"`
	Error        string                `json:"error,omitempty"`
	StartedAt    time.Time             `json:"started_at"`
	FinishedAt   *time.Time            `json:"finished_at,omitempty"`
}

func (a *ActionRecord) IsTerminal() bool {
	return a.Status == ActionStatusCompleted || a.Status == ActionStatusError
}
