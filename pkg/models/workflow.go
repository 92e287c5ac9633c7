// Package models defines the core domain models for graph-based task automation
package models

import "time"

// Workflow is a directed graph of input, processing and output nodes.
// An edge means "target consumes source's output".
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"                  validate:"required,min=1"`
	Description string         `json:"description"`
	Nodes       []*Node        `json:"nodes"                 validate:"dive,required"`
	Edges       []*Edge        `json:"edges"                 validate:"dive,required"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Edge connects the output of one node to the input of another.
type Edge struct {
	ID           string `json:"id"             validate:"required"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
}

// NodeByID returns the node with the given id.
func (w *Workflow) NodeByID(id string) (*Node, bool) {
	for _, node := range w.Nodes {
		if node != nil && node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// InputNodes returns the input nodes in declaration order.
func (w *Workflow) InputNodes() []*Node {
	inputs := make([]*Node, 0)

	for _, node := range w.Nodes {
		if node != nil && node.IsInput() {
			inputs = append(inputs, node)
		}
	}

	return inputs
}

// Upstream maps each node id to the source ids of its incoming edges,
// in edge declaration order.
func (w *Workflow) Upstream() map[string][]string {
	upstream := make(map[string][]string, len(w.Nodes))

	for _, edge := range w.Edges {
		if edge == nil {
			continue
		}

		upstream[edge.TargetNodeID] = append(upstream[edge.TargetNodeID], edge.SourceNodeID)
	}

	return upstream
}

// Downstream maps each node id to the target ids of its outgoing edges,
// in edge declaration order.
func (w *Workflow) Downstream() map[string][]string {
	downstream := make(map[string][]string, len(w.Nodes))

	for _, edge := range w.Edges {
		if edge == nil {
			continue
		}

		downstream[edge.SourceNodeID] = append(downstream[edge.SourceNodeID], edge.TargetNodeID)
	}

	return downstream
}
