// Package docstore provides the output node that keeps a document page per task.
package docstore

import (
	"context"
	"fmt"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
)

// UpdateDocumentStoreNodeFactory creates UpdateDocumentStoreNode instances.
type UpdateDocumentStoreNodeFactory struct {
	adapter protocol.DocumentStoreAdapter
}

func (f *UpdateDocumentStoreNodeFactory) Create(
	_ context.Context,
	id string,
	config map[string]any,
) (protocol.NodeExecutor, error) {
	if f.adapter == nil {
		return nil, fmt.Errorf("%s: %w", f.ID(), protocol.ErrAdapterNotConfigured)
	}

	return NewUpdateDocumentStoreNode(id, config, f.adapter), nil
}

func (f *UpdateDocumentStoreNodeFactory) ID() string {
	return models.SubtypeUpdateDocumentStore
}

func (f *UpdateDocumentStoreNodeFactory) Kind() models.NodeKind {
	return models.NodeKindOutput
}

func (f *UpdateDocumentStoreNodeFactory) Name() string {
	return "Update Document Store"
}

func (f *UpdateDocumentStoreNodeFactory) Description() string {
	return "Creates or updates the document page titled after the most recent task, " +
		"using generated content from upstream nodes as its summary"
}

// Schema returns the JSON schema for document store node configuration.
func (f *UpdateDocumentStoreNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"database_id": map[string]any{
				"type":        "string",
				"description": "Database the page lives in. Defaults to the configured database.",
				"minLength":   1,
			},
		},
		"additionalProperties": false,
	}
}

func NewUpdateDocumentStoreNodeFactory(adapter protocol.DocumentStoreAdapter) protocol.NodeExecutorFactory {
	return &UpdateDocumentStoreNodeFactory{adapter: adapter}
}
