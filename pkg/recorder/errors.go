package recorder

import (
	"errors"
	"fmt"
)

// ErrAlreadyFinalized signals a second Finish on the same execution.
var ErrAlreadyFinalized = errors.New("execution already finalized")

// AlreadyFinalizedError reports a Finish call on an execution that already
// has a terminal status. This is a caller bug, not a storage fault.
type AlreadyFinalizedError struct {
	ExecutionID string
}

func (e *AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("execution %q already finalized", e.ExecutionID)
}

func (e *AlreadyFinalizedError) Is(target error) bool {
	return target == ErrAlreadyFinalized
}

// IsAlreadyFinalized reports whether err is a double-finish error.
func IsAlreadyFinalized(err error) bool {
	return errors.Is(err, ErrAlreadyFinalized)
}
