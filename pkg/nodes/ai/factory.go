// Package ai provides the processing nodes backed by the AI adapter.
package ai

import (
	"context"
	"fmt"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
)

// Content types accepted by ai-generate.
const (
	ContentTypeSummary      = "summary"
	ContentTypeDescription  = "description"
	ContentTypeChecklist    = "checklist"
	ContentTypeReleaseNotes = "release-notes"
)

var contentTypes = []string{
	ContentTypeSummary,
	ContentTypeDescription,
	ContentTypeChecklist,
	ContentTypeReleaseNotes,
}

// AINodeFactory creates AINode instances for one processing subtype.
type AINodeFactory struct {
	subtype     string
	name        string
	description string
	adapter     protocol.AIAdapter
}

func (f *AINodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.NodeExecutor, error) {
	if f.adapter == nil {
		return nil, fmt.Errorf("%s: %w", f.subtype, protocol.ErrAdapterNotConfigured)
	}

	return NewAINode(id, f.subtype, config, f.adapter)
}

func (f *AINodeFactory) ID() string {
	return f.subtype
}

func (f *AINodeFactory) Kind() models.NodeKind {
	return models.NodeKindProcessing
}

func (f *AINodeFactory) Name() string {
	return f.name
}

func (f *AINodeFactory) Description() string {
	return f.description
}

// Schema returns the JSON schema for AI node configuration.
func (f *AINodeFactory) Schema() map[string]any {
	properties := map[string]any{}

	if f.subtype == models.SubtypeAIGenerate {
		properties["content_type"] = map[string]any{
			"type":        "string",
			"description": "Kind of content to generate for the most recent task",
			"enum":        contentTypes,
			"default":     ContentTypeSummary,
		}
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
}

func NewAnalyzeNodeFactory(adapter protocol.AIAdapter) protocol.NodeExecutorFactory {
	return &AINodeFactory{
		subtype:     models.SubtypeAIAnalyze,
		name:        "AI Analyze",
		description: "Analyzes the most recent task and emits the analysis as content",
		adapter:     adapter,
	}
}

func NewGenerateNodeFactory(adapter protocol.AIAdapter) protocol.NodeExecutorFactory {
	return &AINodeFactory{
		subtype:     models.SubtypeAIGenerate,
		name:        "AI Generate",
		description: "Generates content of the configured type for the most recent task",
		adapter:     adapter,
	}
}

func NewCategorizeNodeFactory(adapter protocol.AIAdapter) protocol.NodeExecutorFactory {
	return &AINodeFactory{
		subtype:     models.SubtypeAICategorize,
		name:        "AI Categorize",
		description: "Assigns a category to the most recent task",
		adapter:     adapter,
	}
}
