// Package events defines the event types exchanged over the event bus.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/dukex/taskflow/pkg/models"
)

type EventType string

// Kafka topics.
const Topic = "taskflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Ingress events.
	ProjectChangedEvent EventType = "project.changed"

	// Workflow run lifecycle events.
	WorkflowRunCompletedEvent EventType = "workflow.run.completed"
	WorkflowRunFailedEvent    EventType = "workflow.run.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	ProjectID string         `json:"project_id"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, projectID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		ProjectID: projectID,
	}
}

// ProjectChanged asks the worker to evaluate a project. Snapshot, when set,
// is the proposed state after a mutation and is evaluated instead of the
// stored project.
type ProjectChanged struct {
	BaseEvent

	Snapshot *models.Project `json:"snapshot,omitempty"`
	Source   string          `json:"source,omitempty"`
}

func (p ProjectChanged) GetType() EventType {
	return ProjectChangedEvent
}

type WorkflowRunCompleted struct {
	BaseEvent

	RunID        string                       `json:"run_id"`
	ActionID     string                       `json:"action_id"`
	WorkflowID   string                       `json:"workflow_id"`
	WorkflowName string                       `json:"workflow_name"`
	Results      map[string]models.NodeResult `json:"results,omitempty"`
	Duration     time.Duration                `json:"duration"`
}

func (w WorkflowRunCompleted) GetType() EventType {
	return WorkflowRunCompletedEvent
}

type WorkflowRunFailed struct {
	BaseEvent

	RunID        string                       `json:"run_id"`
	ActionID     string                       `json:"action_id"`
	WorkflowID   string                       `json:"workflow_id"`
	WorkflowName string                       `json:"workflow_name"`
	NodeID       string                       `json:"node_id,omitempty"`
	Error        string                       `json:"error"`
	Results      map[string]models.NodeResult `json:"results,omitempty"`
	Duration     time.Duration                `json:"duration"`
}

func (w WorkflowRunFailed) GetType() EventType {
	return WorkflowRunFailedEvent
}
