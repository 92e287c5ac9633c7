package engine

import (
	"errors"
	"fmt"

	"github.com/dukex/taskflow/pkg/persistence"
)

var (
	// ErrConfiguration indicates a workflow that cannot run as stored.
	ErrConfiguration = errors.New("workflow configuration error")

	// ErrCycleDetected indicates a cycle among the nodes a run would execute.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrNodeFailed indicates a node dispatch that did not succeed.
	ErrNodeFailed = errors.New("node failed")

	// ErrWorkflowNotFound indicates a coupled workflow missing from the store.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

// ConfigurationError reports an unknown subtype, an invalid node config or a
// missing workflow. It is never retried.
type ConfigurationError struct {
	WorkflowID string
	NodeID     string
	Reason     string
	Err        error
}

func (e *ConfigurationError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("configuration error in workflow %s node %s: %s", e.WorkflowID, e.NodeID, e.Reason)
	}

	return fmt.Sprintf("configuration error in workflow %s: %s", e.WorkflowID, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration || errors.Is(e.Err, target)
}

// CycleError reports the node at which a cycle was found.
type CycleError struct {
	NodeID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected at node %s", e.NodeID)
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// NodeFailedError carries the id and message of the node that failed a run.
type NodeFailedError struct {
	NodeID  string
	Message string
}

func (e *NodeFailedError) Error() string {
	return fmt.Sprintf("node %s failed: %s", e.NodeID, e.Message)
}

func (e *NodeFailedError) Is(target error) bool {
	return target == ErrNodeFailed
}

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsCycleError(err error) bool {
	return errors.Is(err, ErrCycleDetected)
}

func IsNodeFailedError(err error) bool {
	return errors.Is(err, ErrNodeFailed)
}

// FailedNodeID returns the node a run error points at, if any.
func FailedNodeID(err error) string {
	var (
		configErr *ConfigurationError
		cycleErr  *CycleError
		failedErr *NodeFailedError
	)

	switch {
	case errors.As(err, &failedErr):
		return failedErr.NodeID
	case errors.As(err, &cycleErr):
		return cycleErr.NodeID
	case errors.As(err, &configErr):
		return configErr.NodeID
	default:
		return ""
	}
}
