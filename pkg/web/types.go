// Package web provides HTTP handlers and REST API endpoints for projects and workflows.
package web

import (
	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/trigger"
)

// SaveProjectRequest is the body of PUT /projects/:id. Couplings are
// managed through their own endpoints.
type SaveProjectRequest struct {
	Name     string           `json:"name"               validate:"required"`
	Tasks    []models.Task    `json:"tasks"              validate:"dive"`
	Diagrams []map[string]any `json:"diagrams,omitempty"`
}

type SaveProjectResponse struct {
	Project *models.Project `json:"project"`
	Change  trigger.Change  `json:"change"`
}

// ProposedSnapshot is an optional project snapshot to evaluate instead of
// the stored one. Its couplings are ignored.
type ProposedSnapshot struct {
	Name     string           `json:"name,omitempty"`
	Tasks    []models.Task    `json:"tasks"              validate:"dive"`
	Diagrams []map[string]any `json:"diagrams,omitempty"`
}

func (s *ProposedSnapshot) project() *models.Project {
	if s == nil {
		return nil
	}

	return &models.Project{Name: s.Name, Tasks: s.Tasks, Diagrams: s.Diagrams}
}

// EvaluateRequest is the optional body of POST /projects/:id/evaluate.
type EvaluateRequest struct {
	Snapshot *ProposedSnapshot `json:"snapshot,omitempty"`
}

// PublishEventRequest is the optional body of POST /projects/:id/events.
type PublishEventRequest struct {
	Snapshot *ProposedSnapshot `json:"snapshot,omitempty"`
	Source   string            `json:"source,omitempty"`
}

type PublishEventResponse struct {
	EventID string `json:"event_id"`
}

// ValidationResponse is returned by POST /workflows/validate.
type ValidationResponse struct {
	Valid  bool   `json:"valid"`
	Errors string `json:"errors,omitempty"`
}

// NodeTypeResponse describes a registered node subtype.
type NodeTypeResponse struct {
	Subtype     string         `json:"subtype"`
	Kind        string         `json:"kind"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}
