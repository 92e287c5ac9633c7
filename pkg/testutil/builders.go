// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/dukex/taskflow/pkg/models"
)

// CreateTestNode creates a node of the given catalog subtype. The kind is
// derived from the subtype.
func CreateTestNode(id, subtype string, overrides ...func(*models.Node)) *models.Node {
	kind, _ := models.KindOfSubtype(subtype)

	node := &models.Node{
		ID:        id,
		Kind:      kind,
		Subtype:   subtype,
		Title:     "Test " + subtype,
		PositionX: 100,
		PositionY: 200,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Config = config
	}
}

// WithKind overrides the kind derived from the subtype.
func WithKind(kind models.NodeKind) func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = kind
	}
}

// CreateTestEdge connects source to target.
func CreateTestEdge(source, target string) *models.Edge {
	return &models.Edge{
		ID:           source + "-" + target,
		SourceNodeID: source,
		TargetNodeID: target,
	}
}

// CreateTestWorkflow creates a workflow from nodes and edges.
func CreateTestWorkflow(nodes []*models.Node, edges []*models.Edge, overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        "Test Workflow",
		Description: "A test workflow",
		Nodes:       nodes,
		Edges:       edges,
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithWorkflowID sets the workflow id.
func WithWorkflowID(id string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.ID = id
	}
}

// CreateAnalyzeAndPostWorkflow creates [task-completed] -> [ai-analyze] -> [post-chat-message].
func CreateAnalyzeAndPostWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	return CreateTestWorkflow(
		[]*models.Node{
			CreateTestNode("completed", models.SubtypeTaskCompleted),
			CreateTestNode("analyze", models.SubtypeAIAnalyze),
			CreateTestNode("post", models.SubtypePostChatMessage, WithConfig(map[string]any{"channel": "#releases"})),
		},
		[]*models.Edge{
			CreateTestEdge("completed", "analyze"),
			CreateTestEdge("analyze", "post"),
		},
		overrides...,
	)
}

// CreateTestTask creates a task with fixed timestamps.
func CreateTestTask(id, title string, overrides ...func(*models.Task)) models.Task {
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	task := models.Task{
		ID:          id,
		Title:       title,
		Description: "Description of " + title,
		CreatedAt:   at,
		UpdatedAt:   at,
	}

	for _, override := range overrides {
		override(&task)
	}

	return task
}

// Completed marks a task as completed.
func Completed() func(*models.Task) {
	return func(t *models.Task) {
		t.Completed = true
	}
}

// CreateTestProject creates a project holding tasks.
func CreateTestProject(id string, tasks ...models.Task) *models.Project {
	return &models.Project{
		ID:          id,
		Name:        "Project " + id,
		WorkflowIDs: make([]string, 0),
		Tasks:       tasks,
	}
}
