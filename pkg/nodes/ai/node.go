package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
)

// Fallback placeholders attached to failed results. They are informational
// and never read by downstream nodes.
const (
	FallbackAnalysis = "analysis unavailable"
	FallbackContent  = "content unavailable"
	FallbackCategory = "uncategorized"
)

var errNoTasks = errors.New("project has no tasks")

// AINode calls the AI adapter with the most recent task of the run.
type AINode struct {
	id          string
	subtype     string
	contentType string
	adapter     protocol.AIAdapter
}

func NewAINode(id, subtype string, config map[string]any, adapter protocol.AIAdapter) (*AINode, error) {
	switch subtype {
	case models.SubtypeAIAnalyze, models.SubtypeAIGenerate, models.SubtypeAICategorize:
	default:
		return nil, fmt.Errorf("%q is not an AI subtype", subtype)
	}

	contentType := ContentTypeSummary
	if ct, ok := config[models.PayloadKeyContentType].(string); ok && ct != "" {
		contentType = ct
	}

	return &AINode{
		id:          id,
		subtype:     subtype,
		contentType: contentType,
		adapter:     adapter,
	}, nil
}

func (n *AINode) ID() string {
	return n.id
}

func (n *AINode) Type() string {
	return n.subtype
}

func (n *AINode) Execute(ctx context.Context, execCtx *models.ExecutionContext, _ protocol.Prior) models.NodeResult {
	task, ok := execCtx.LatestTask()
	if !ok {
		return n.failure(errNoTasks)
	}

	switch n.subtype {
	case models.SubtypeAIAnalyze:
		analysis, err := n.adapter.Analyze(ctx, *task)
		if err != nil {
			return n.failure(err)
		}

		return n.success(fmt.Sprintf("analyzed task %q", task.Title), map[string]any{
			models.PayloadKeyAnalysis: analysis,
			models.PayloadKeyContent:  analysis,
		})
	case models.SubtypeAIGenerate:
		content, err := n.adapter.Generate(ctx, *task, n.contentType)
		if err != nil {
			return n.failure(err)
		}

		return n.success(fmt.Sprintf("generated %s for task %q", n.contentType, task.Title), map[string]any{
			models.PayloadKeyContent:     content,
			models.PayloadKeyContentType: n.contentType,
		})
	default:
		category, err := n.adapter.Categorize(ctx, *task)
		if err != nil {
			return n.failure(err)
		}

		return n.success(fmt.Sprintf("categorized task %q as %s", task.Title, category), map[string]any{
			models.PayloadKeyCategory: category,
		})
	}
}

func (n *AINode) success(message string, payload map[string]any) models.NodeResult {
	return models.NodeResult{
		NodeID:  n.id,
		Success: true,
		Message: message,
		Payload: payload,
	}
}

func (n *AINode) failure(err error) models.NodeResult {
	fallback := FallbackContent

	switch n.subtype {
	case models.SubtypeAIAnalyze:
		fallback = FallbackAnalysis
	case models.SubtypeAICategorize:
		fallback = FallbackCategory
	}

	return models.NodeResult{
		NodeID:  n.id,
		Success: false,
		Message: err.Error(),
		Error:   err.Error(),
		Payload: map[string]any{models.PayloadKeyFallback: fallback},
	}
}
