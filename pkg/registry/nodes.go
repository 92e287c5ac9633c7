package registry

import (
	"errors"

	"github.com/dukex/taskflow/pkg/nodes/ai"
	"github.com/dukex/taskflow/pkg/nodes/chat"
	"github.com/dukex/taskflow/pkg/nodes/docstore"
	"github.com/dukex/taskflow/pkg/nodes/input"
	"github.com/dukex/taskflow/pkg/protocol"
)

// RegisterDefaultNodes registers the built-in node factories. Nodes whose
// adapter is nil are still registered and fail with a configuration error
// when a workflow uses them.
func (r *Registry) RegisterDefaultNodes(adapters protocol.Adapters) error {
	factories := []protocol.NodeExecutorFactory{
		// Input nodes
		input.NewTaskCreatedNodeFactory(),
		input.NewTaskCompletedNodeFactory(),
		input.NewTaskUpdatedNodeFactory(),

		// Processing nodes
		ai.NewAnalyzeNodeFactory(adapters.AI),
		ai.NewGenerateNodeFactory(adapters.AI),
		ai.NewCategorizeNodeFactory(adapters.AI),

		// Output nodes
		docstore.NewUpdateDocumentStoreNodeFactory(adapters.DocumentStore),
		chat.NewPostChatMessageNodeFactory(adapters.Chat),
	}

	var errs []error

	for _, factory := range factories {
		if err := r.RegisterNode(factory); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
