// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrProjectNotFound indicates a project was not found by the given identifier.
	ErrProjectNotFound = errors.New("project not found")

	// ErrCouplingNotFound indicates the workflow is not coupled to the project.
	ErrCouplingNotFound = errors.New("workflow is not coupled to project")

	// ErrActionNotFound indicates an action record was not found.
	ErrActionNotFound = errors.New("action record not found")

	// ErrActionFinalized indicates a second terminal transition of an action record.
	ErrActionFinalized = errors.New("action record already finalized")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// ProjectError wraps project-related errors with additional context.
type ProjectError struct {
	Op         string
	ProjectID  string
	WorkflowID string // Set for coupling operations
	Err        error
}

func (e *ProjectError) Error() string {
	if e.WorkflowID != "" {
		return fmt.Sprintf("%s operation failed for project %s and workflow %s: %v", e.Op, e.ProjectID, e.WorkflowID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for project %s: %v", e.Op, e.ProjectID, e.Err)
}

func (e *ProjectError) Unwrap() error {
	return e.Err
}

func (e *ProjectError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewProjectError(op, projectID string, err error) *ProjectError {
	return &ProjectError{
		Op:        op,
		ProjectID: projectID,
		Err:       err,
	}
}

func NewCouplingError(op, projectID, workflowID string, err error) *ProjectError {
	return &ProjectError{
		Op:         op,
		ProjectID:  projectID,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// ActionError wraps action-record errors with additional context.
type ActionError struct {
	Op       string
	ActionID string
	Err      error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s operation failed for action %s: %v", e.Op, e.ActionID, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func (e *ActionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewActionError(op, actionID string, err error) *ActionError {
	return &ActionError{
		Op:       op,
		ActionID: actionID,
		Err:      err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsProjectNotFound checks if an error indicates a project was not found.
func IsProjectNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound)
}

// IsNotFound checks if an error indicates any missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrCouplingNotFound) ||
		errors.Is(err, ErrActionNotFound)
}
