package code

import (
	"errors"
	"fmt"
	"time"
)

// Standard sandbox error types.
var (
	// ErrTimeout indicates user code that did not finish within its
	// configured timeout. The result is abandoned; the underlying VM is
	// interrupted best-effort and may keep consuming resources briefly.
	ErrTimeout = errors.New("code execution timed out")

	// ErrRuntime indicates an exception raised inside user code.
	ErrRuntime = errors.New("code execution failed")
)

// TimeoutError wraps a sandbox timeout with the configured limit.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("code execution timed out after %s", e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// RuntimeError wraps an exception thrown by user code with its message and
// JavaScript stack. It fails only the node, never the engine.
type RuntimeError struct {
	Message string
	Stack   string
}

func (e *RuntimeError) Error() string {
	return "code execution failed: " + e.Message
}

func (e *RuntimeError) Is(target error) bool {
	return target == ErrRuntime
}

// IsTimeout checks if an error indicates a sandbox timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsRuntime checks if an error indicates an exception in user code.
func IsRuntime(err error) bool {
	return errors.Is(err, ErrRuntime)
}
