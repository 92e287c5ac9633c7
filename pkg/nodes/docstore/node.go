package docstore

import (
	"context"
	"fmt"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
)

// UpdateDocumentStoreNode upserts the page of the most recent task.
type UpdateDocumentStoreNode struct {
	id         string
	databaseID string
	adapter    protocol.DocumentStoreAdapter
}

func NewUpdateDocumentStoreNode(
	id string,
	config map[string]any,
	adapter protocol.DocumentStoreAdapter,
) *UpdateDocumentStoreNode {
	databaseID, _ := config["database_id"].(string)

	return &UpdateDocumentStoreNode{
		id:         id,
		databaseID: databaseID,
		adapter:    adapter,
	}
}

func (n *UpdateDocumentStoreNode) ID() string {
	return n.id
}

func (n *UpdateDocumentStoreNode) Type() string {
	return models.SubtypeUpdateDocumentStore
}

func (n *UpdateDocumentStoreNode) Execute(
	ctx context.Context,
	execCtx *models.ExecutionContext,
	prior protocol.Prior,
) models.NodeResult {
	task, ok := execCtx.LatestTask()
	if !ok {
		return models.NodeResult{
			NodeID:  n.id,
			Message: "project has no tasks",
			Error:   "project has no tasks",
		}
	}

	summary, _ := prior.FirstContent()

	page, err := n.adapter.UpsertTaskPage(ctx, n.databaseID, *task, summary)
	if err != nil {
		return models.NodeResult{
			NodeID:  n.id,
			Message: err.Error(),
			Error:   err.Error(),
		}
	}

	return models.NodeResult{
		NodeID:  n.id,
		Success: true,
		Message: fmt.Sprintf("updated document page for task %q", task.Title),
		Payload: map[string]any{
			models.PayloadKeyPageURL: page.URL,
			models.PayloadKeyPageID:  page.ID,
		},
	}
}
