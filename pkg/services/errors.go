// Package services provides the business logic layer over flows and
// executions.
package services

import (
	"errors"
	"fmt"

	"github.com/calder/automa/pkg/persistence"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidStatus  = errors.New("invalid flow status")
	ErrFlowNotValid   = errors.New("flow has validation issues")

	// Business logic conflicts (409 Conflict).
	ErrFlowNotActive      = errors.New("flow is not active")
	ErrFlowAlreadyActive  = errors.New("flow is already active")
	ErrCannotModifyActive = errors.New("cannot modify active flow")
	ErrCannotDeleteActive = errors.New("cannot delete active flow")
)

// ErrFlowNotFound is returned when a flow is not found.
var ErrFlowNotFound = persistence.ErrFlowNotFound

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrFlowNotValid)
}

// IsConflictError checks if an error should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrFlowNotActive) ||
		errors.Is(err, ErrFlowAlreadyActive) ||
		errors.Is(err, ErrCannotModifyActive) ||
		errors.Is(err, ErrCannotDeleteActive)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewConflictError creates a new conflict error with context.
func NewConflictError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
