// Package protocol defines the contracts between the engine, node executors
// and the external services nodes call.
package protocol

import (
	"context"
	"errors"

	"github.com/dukex/taskflow/pkg/models"
)

// NodeExecutorFactory creates executors for one node subtype and provides
// metadata about it.
type NodeExecutorFactory interface {
	// Create creates an executor for the node with the given configuration
	Create(ctx context.Context, id string, config map[string]any) (NodeExecutor, error)

	// ID returns the subtype this factory handles
	ID() string

	// Kind returns the node kind of the subtype
	Kind() models.NodeKind

	// Name returns the human-readable name for this subtype
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema for configuring this node
	Schema() map[string]any
}

// NodeExecutor runs a single node. Failures are reported through the
// returned result, never by panicking or blocking past ctx.
type NodeExecutor interface {
	ID() string
	Type() string
	Execute(ctx context.Context, execCtx *models.ExecutionContext, prior Prior) models.NodeResult
}

// Prior is the ordered view of results memoized before a node runs: direct
// upstream results in incoming-edge order, then every other memoized result
// in dispatch order.
type Prior []models.NodeResult

// FirstContent returns the first generated content found in prior payloads.
func (p Prior) FirstContent() (string, bool) {
	for _, result := range p {
		if content, ok := result.Content(); ok {
			return content, true
		}
	}

	return "", false
}

// ErrAdapterNotConfigured is returned by factories whose external service
// is not available in this process.
var ErrAdapterNotConfigured = errors.New("adapter not configured")
