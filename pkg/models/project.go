package models

import (
	"slices"
	"time"
)

// Task is a unit of work tracked by a project.
type Task struct {
	ID          string         `json:"id"                    validate:"required"`
	Title       string         `json:"title"                 validate:"required"`
	Description string         `json:"description"`
	Completed   bool           `json:"completed"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Project is a tracked collection of tasks. WorkflowIDs lists the
// workflows coupled to it, in coupling order.
type Project struct {
	ID          string           `json:"id"                    validate:"required"`
	Name        string           `json:"name"                  validate:"required"`
	WorkflowIDs []string         `json:"workflow_ids"`
	Tasks       []Task           `json:"tasks"                 validate:"dive"`
	Diagrams    []map[string]any `json:"diagrams,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// LatestTask returns the most recent task, which is the last one in
// snapshot order.
func (p *Project) LatestTask() (*Task, bool) {
	return latestTask(p.Tasks)
}

func (p *Project) IsCoupled(workflowID string) bool {
	return slices.Contains(p.WorkflowIDs, workflowID)
}

func latestTask(tasks []Task) (*Task, bool) {
	if len(tasks) == 0 {
		return nil, false
	}

	return &tasks[len(tasks)-1], true
}
