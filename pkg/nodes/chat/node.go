package chat

import (
	"context"
	"fmt"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
	"github.com/dukex/taskflow/pkg/template"
)

// PostChatMessageNode posts the rendered message for the most recent task.
type PostChatMessageNode struct {
	id      string
	channel string
	message string
	adapter protocol.ChatAdapter
}

func NewPostChatMessageNode(id string, config map[string]any, adapter protocol.ChatAdapter) (*PostChatMessageNode, error) {
	channel, _ := config["channel"].(string)

	message := DefaultMessage
	if m, ok := config["message"].(string); ok && m != "" {
		if err := validateMessage(m); err != nil {
			return nil, fmt.Errorf("invalid message template: %w", err)
		}

		message = m
	}

	return &PostChatMessageNode{
		id:      id,
		channel: channel,
		message: message,
		adapter: adapter,
	}, nil
}

func (n *PostChatMessageNode) ID() string {
	return n.id
}

func (n *PostChatMessageNode) Type() string {
	return models.SubtypePostChatMessage
}

func (n *PostChatMessageNode) Execute(
	ctx context.Context,
	execCtx *models.ExecutionContext,
	prior protocol.Prior,
) models.NodeResult {
	task, ok := execCtx.LatestTask()
	if !ok {
		return n.failure("project has no tasks")
	}

	summary, _ := prior.FirstContent()

	text, err := template.RenderTask(n.message, execCtx, *task, summary)
	if err != nil {
		return n.failure(err.Error())
	}

	ref, err := n.adapter.PostTaskUpdate(ctx, n.channel, *task, text)
	if err != nil {
		return n.failure(err.Error())
	}

	return models.NodeResult{
		NodeID:  n.id,
		Success: true,
		Message: fmt.Sprintf("posted update for task %q to %s", task.Title, ref.Channel),
		Payload: map[string]any{
			models.PayloadKeyMessageID: ref.ID,
			models.PayloadKeyChannel:   ref.Channel,
		},
	}
}

func (n *PostChatMessageNode) failure(message string) models.NodeResult {
	return models.NodeResult{
		NodeID:  n.id,
		Message: message,
		Error:   message,
	}
}
