// Package trigger derives the trigger set a project snapshot emits.
package trigger

import (
	"slices"

	"github.com/dukex/taskflow/pkg/models"
)

// Detect computes the triggers observed on a project snapshot. TaskCreated
// and TaskUpdated both fire whenever the project has any task; TaskCompleted
// fires when at least one task is completed.
func Detect(project *models.Project) models.TriggerSet {
	set := models.NewTriggerSet()
	if project == nil {
		return set
	}

	return detectTasks(project.Tasks)
}

func detectTasks(tasks []models.Task) models.TriggerSet {
	set := models.NewTriggerSet()

	if len(tasks) > 0 {
		set.Add(models.TriggerTaskCreated)
		set.Add(models.TriggerTaskUpdated)
	}

	if slices.ContainsFunc(tasks, func(task models.Task) bool { return task.Completed }) {
		set.Add(models.TriggerTaskCompleted)
	}

	return set
}

// Change describes a proposed mutation of a project snapshot.
type Change struct {
	Triggers models.TriggerSet `json:"triggers"`
	Created  []string          `json:"created,omitempty"`
	Updated  []string          `json:"updated,omitempty"`
	Removed  []string          `json:"removed,omitempty"`
}

// Changed reports whether any task differs between the two snapshots.
func (c Change) Changed() bool {
	return len(c.Created) > 0 || len(c.Updated) > 0 || len(c.Removed) > 0
}

// DetectChange evaluates the snapshot after a proposed mutation. Triggers
// are those of Detect(current); the task id lists are informational.
func DetectChange(previous, current *models.Project) Change {
	change := Change{Triggers: Detect(current)}

	before := map[string]models.Task{}
	if previous != nil {
		for _, task := range previous.Tasks {
			before[task.ID] = task
		}
	}

	seen := map[string]bool{}

	if current != nil {
		for _, task := range current.Tasks {
			seen[task.ID] = true

			old, existed := before[task.ID]

			switch {
			case !existed:
				change.Created = append(change.Created, task.ID)
			case taskChanged(old, task):
				change.Updated = append(change.Updated, task.ID)
			}
		}
	}

	if previous != nil {
		for _, task := range previous.Tasks {
			if !seen[task.ID] {
				change.Removed = append(change.Removed, task.ID)
			}
		}
	}

	return change
}

func taskChanged(old, current models.Task) bool {
	return old.Title != current.Title ||
		old.Description != current.Description ||
		old.Completed != current.Completed ||
		!old.UpdatedAt.Equal(current.UpdatedAt)
}
