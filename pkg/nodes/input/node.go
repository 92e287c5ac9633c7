package input

import (
	"context"
	"fmt"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
)

// InputNode marks the entry point of a run. It passes no payload on.
type InputNode struct {
	id      string
	subtype string
	trigger models.TriggerKind
}

func NewInputNode(id, subtype string) (*InputNode, error) {
	trigger, ok := models.TriggerForSubtype(subtype)
	if !ok {
		return nil, fmt.Errorf("%q is not an input subtype", subtype)
	}

	return &InputNode{id: id, subtype: subtype, trigger: trigger}, nil
}

func (n *InputNode) ID() string {
	return n.id
}

func (n *InputNode) Type() string {
	return n.subtype
}

func (n *InputNode) Execute(_ context.Context, execCtx *models.ExecutionContext, _ protocol.Prior) models.NodeResult {
	return models.NodeResult{
		NodeID:  n.id,
		Success: true,
		Message: fmt.Sprintf("trigger %s fired for project %s with %d task(s)",
			n.trigger, execCtx.ProjectID, len(execCtx.Tasks)),
	}
}
