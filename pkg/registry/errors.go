package registry

import (
	"errors"
	"fmt"
	"strings"
)

// Standard registry error types.
var (
	// ErrUnknownOperation indicates a lookup for an unregistered operation
	// type. It fails only that node's branch, never the whole run.
	ErrUnknownOperation = errors.New("operation type not registered")

	// ErrInvalidOptions indicates operation options that fail their schema.
	ErrInvalidOptions = errors.New("invalid operation options")
)

// UnknownOperationError wraps a registry lookup miss with the offending
// type key.
type UnknownOperationError struct {
	OperationType string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("operation type %q not registered", e.OperationType)
}

func (e *UnknownOperationError) Is(target error) bool {
	return target == ErrUnknownOperation
}

// OptionsValidationError carries every schema violation found in one
// node's options.
type OptionsValidationError struct {
	OperationType string
	Causes        []string
}

func (e *OptionsValidationError) Error() string {
	return fmt.Sprintf("options for operation type %q failed validation: %s",
		e.OperationType, strings.Join(e.Causes, "; "))
}

func (e *OptionsValidationError) Is(target error) bool {
	return target == ErrInvalidOptions
}

// IsUnknownOperation checks if an error indicates an unregistered type.
func IsUnknownOperation(err error) bool {
	return errors.Is(err, ErrUnknownOperation)
}

// IsInvalidOptions checks if an error indicates schema-invalid options.
func IsInvalidOptions(err error) bool {
	return errors.Is(err, ErrInvalidOptions)
}
