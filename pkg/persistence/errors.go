package persistence

import (
	"errors"
	"fmt"
)

// Sentinel errors for common storage failure modes. Backends wrap these so
// callers can branch with errors.Is regardless of the storage engine.
var (
	ErrFlowNotFound       = errors.New("flow not found")
	ErrExecutionNotFound  = errors.New("execution not found")
	ErrExecutionFinalized = errors.New("execution already finalized")
)

// FlowNotFoundError carries the flow ID that could not be found.
type FlowNotFoundError struct {
	FlowID string
}

func (e *FlowNotFoundError) Error() string {
	return fmt.Sprintf("flow %q not found", e.FlowID)
}

func (e *FlowNotFoundError) Is(target error) bool {
	return target == ErrFlowNotFound
}

// ExecutionNotFoundError carries the execution ID that could not be found.
type ExecutionNotFoundError struct {
	ExecutionID string
}

func (e *ExecutionNotFoundError) Error() string {
	return fmt.Sprintf("execution %q not found", e.ExecutionID)
}

func (e *ExecutionNotFoundError) Is(target error) bool {
	return target == ErrExecutionNotFound
}

// ExecutionFinalizedError signals that a record already has a terminal
// status and cannot be finalized again.
type ExecutionFinalizedError struct {
	ExecutionID string
}

func (e *ExecutionFinalizedError) Error() string {
	return fmt.Sprintf("execution %q already finalized", e.ExecutionID)
}

func (e *ExecutionFinalizedError) Is(target error) bool {
	return target == ErrExecutionFinalized
}

// IsFlowNotFound reports whether err is a flow-not-found error.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}

// IsExecutionNotFound reports whether err is an execution-not-found error.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsExecutionFinalized reports whether err is a double-finalize error.
func IsExecutionFinalized(err error) bool {
	return errors.Is(err, ErrExecutionFinalized)
}
