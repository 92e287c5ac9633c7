package models

// ExecutionContext carries the project snapshot and resolved triggers for
// one workflow run. It is owned by that run and discarded afterwards.
type ExecutionContext struct {
	ID          string           `json:"id"`
	WorkflowID  string           `json:"workflow_id"`
	ProjectID   string           `json:"project_id"`
	ProjectName string           `json:"project_name"`
	Tasks       []Task           `json:"tasks"`
	Diagrams    []map[string]any `json:"diagrams,omitempty"`
	Triggers    TriggerSet       `json:"triggers"`
}

// LatestTask returns the most recent task of the snapshot.
func (c *ExecutionContext) LatestTask() (*Task, bool) {
	return latestTask(c.Tasks)
}
