package models

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrDuplicateNodeID = errors.New("duplicate node id")
	ErrUnknownSubtype  = errors.New("unknown node subtype")
	ErrKindMismatch    = errors.New("node kind does not match subtype")
	ErrDanglingEdge    = errors.New("edge references unknown node")
	ErrSelfLoop        = errors.New("edge connects a node to itself")
	ErrGraphCycle      = errors.New("workflow graph contains a cycle")
	ErrEmptyElement    = errors.New("workflow contains an empty node or edge")
)

// Validate checks the structural rules of the graph and returns every
// violation found, joined.
func (w *Workflow) Validate() error {
	if slices.Contains(w.Nodes, nil) {
		return fmt.Errorf("%w: nodes", ErrEmptyElement)
	}

	if slices.Contains(w.Edges, nil) {
		return fmt.Errorf("%w: edges", ErrEmptyElement)
	}

	var errs []error

	nodes := make(map[string]*Node, len(w.Nodes))

	for _, node := range w.Nodes {
		if _, exists := nodes[node.ID]; exists {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateNodeID, node.ID))

			continue
		}

		nodes[node.ID] = node

		kind, ok := KindOfSubtype(node.Subtype)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: node %q has subtype %q", ErrUnknownSubtype, node.ID, node.Subtype))

			continue
		}

		if kind != node.Kind {
			errs = append(errs, fmt.Errorf("%w: node %q is %q but %q is %q",
				ErrKindMismatch, node.ID, node.Kind, node.Subtype, kind))
		}
	}

	for _, edge := range w.Edges {
		if _, ok := nodes[edge.SourceNodeID]; !ok {
			errs = append(errs, fmt.Errorf("%w: edge %q source %q", ErrDanglingEdge, edge.ID, edge.SourceNodeID))
		}

		if _, ok := nodes[edge.TargetNodeID]; !ok {
			errs = append(errs, fmt.Errorf("%w: edge %q target %q", ErrDanglingEdge, edge.ID, edge.TargetNodeID))
		}

		if edge.SourceNodeID == edge.TargetNodeID {
			errs = append(errs, fmt.Errorf("%w: edge %q on %q", ErrSelfLoop, edge.ID, edge.SourceNodeID))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if cyclic := w.cyclicNodes(); len(cyclic) > 0 {
		return fmt.Errorf("%w: nodes %v", ErrGraphCycle, cyclic)
	}

	return nil
}

// cyclicNodes peels off nodes with no remaining incoming edges; whatever
// is left sits on or behind a cycle.
func (w *Workflow) cyclicNodes() []string {
	inDegree := make(map[string]int, len(w.Nodes))
	for _, node := range w.Nodes {
		inDegree[node.ID] = 0
	}

	for _, edge := range w.Edges {
		inDegree[edge.TargetNodeID]++
	}

	queue := make([]string, 0, len(w.Nodes))

	for _, node := range w.Nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	downstream := w.Downstream()

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		delete(inDegree, id)

		for _, target := range downstream[id] {
			inDegree[target]--
			if inDegree[target] == 0 {
				queue = append(queue, target)
			}
		}
	}

	remaining := make([]string, 0, len(inDegree))
	for id := range inDegree {
		remaining = append(remaining, id)
	}

	slices.Sort(remaining)

	return remaining
}
