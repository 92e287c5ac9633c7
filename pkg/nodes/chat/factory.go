// Package chat provides the output node that posts task updates to chat.
package chat

import (
	"context"
	"fmt"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
	"github.com/dukex/taskflow/pkg/template"
)

// DefaultMessage is used when the node has no message template.
const DefaultMessage = `*{{.project.name}}*: {{.task.title}} ({{status .task.completed}})
{{.summary}}`

// PostChatMessageNodeFactory creates PostChatMessageNode instances.
type PostChatMessageNodeFactory struct {
	adapter protocol.ChatAdapter
}

func (f *PostChatMessageNodeFactory) Create(
	_ context.Context,
	id string,
	config map[string]any,
) (protocol.NodeExecutor, error) {
	if f.adapter == nil {
		return nil, fmt.Errorf("%s: %w", f.ID(), protocol.ErrAdapterNotConfigured)
	}

	return NewPostChatMessageNode(id, config, f.adapter)
}

func (f *PostChatMessageNodeFactory) ID() string {
	return models.SubtypePostChatMessage
}

func (f *PostChatMessageNodeFactory) Kind() models.NodeKind {
	return models.NodeKindOutput
}

func (f *PostChatMessageNodeFactory) Name() string {
	return "Post Chat Message"
}

func (f *PostChatMessageNodeFactory) Description() string {
	return "Posts an update about the most recent task, including generated content from upstream nodes"
}

// Schema returns the JSON schema for chat node configuration.
func (f *PostChatMessageNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"channel": map[string]any{
				"type":        "string",
				"description": "Channel to post to. Defaults to the configured channel.",
				"minLength":   1,
				"examples":    []string{"#releases", "C0123456789"},
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message template. Supports .project, .task and .summary.",
				"minLength":   1,
				"examples": []string{
					"{{.task.title}} is done: {{.summary}}",
					"New task in {{.project.name}}: {{.task.title}}",
				},
			},
		},
		"additionalProperties": false,
	}
}

func NewPostChatMessageNodeFactory(adapter protocol.ChatAdapter) protocol.NodeExecutorFactory {
	return &PostChatMessageNodeFactory{adapter: adapter}
}

func validateMessage(message string) error {
	_, err := template.Render(message, template.TaskData(&models.ExecutionContext{}, models.Task{}, ""))

	return err
}
