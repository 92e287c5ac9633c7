// Package input provides the trigger-bound input nodes.
package input

import (
	"context"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
)

// InputNodeFactory creates InputNode instances for one input subtype.
type InputNodeFactory struct {
	subtype     string
	name        string
	description string
}

func (f *InputNodeFactory) Create(_ context.Context, id string, _ map[string]any) (protocol.NodeExecutor, error) {
	return NewInputNode(id, f.subtype)
}

func (f *InputNodeFactory) ID() string {
	return f.subtype
}

func (f *InputNodeFactory) Kind() models.NodeKind {
	return models.NodeKindInput
}

func (f *InputNodeFactory) Name() string {
	return f.name
}

func (f *InputNodeFactory) Description() string {
	return f.description
}

// Schema returns the JSON schema for input node configuration. Input
// nodes take no options.
func (f *InputNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"additionalProperties": false,
	}
}

func NewTaskCreatedNodeFactory() protocol.NodeExecutorFactory {
	return &InputNodeFactory{
		subtype:     models.SubtypeTaskCreated,
		name:        "Task Created",
		description: "Starts the workflow when the project has tasks",
	}
}

func NewTaskCompletedNodeFactory() protocol.NodeExecutorFactory {
	return &InputNodeFactory{
		subtype:     models.SubtypeTaskCompleted,
		name:        "Task Completed",
		description: "Starts the workflow when at least one task of the project is completed",
	}
}

func NewTaskUpdatedNodeFactory() protocol.NodeExecutorFactory {
	return &InputNodeFactory{
		subtype:     models.SubtypeTaskUpdated,
		name:        "Task Updated",
		description: "Starts the workflow when the project has tasks",
	}
}
