// Package protocol defines the interfaces and contracts for pluggable
// operations.
package protocol

import (
	"context"

	"github.com/calder/automa/pkg/datachain"
)

// Result is what one operation execution produces. Output becomes the
// node's recorded output and the chain's new $last value; Logs carry any
// output captured during execution (the sandboxed code runner's console,
// for instance).
type Result struct {
	Output any
	Logs   []string
}

// Operation is one executable step instance, created by its factory with
// already-interpolated options. Execute receives a read/append-only view
// of the data chain; it must never mutate prior entries. A failing Execute
// may still return a partial Result so captured logs survive the error.
type Operation interface {
	Execute(ctx context.Context, chain *datachain.Context) (*Result, error)
}

// OperationFactory creates operation instances and provides metadata about
// the operation type.
type OperationFactory interface {
	// Create builds an operation instance from interpolated options. The
	// registry validates options against Schema before calling Create.
	Create(ctx context.Context, id string, options map[string]any) (Operation, error)

	// ID returns the unique registry key for this operation type.
	ID() string

	// Name returns the human-readable name for this operation type.
	Name() string

	// Description returns a description of what this operation does.
	Description() string

	// Schema returns the JSON schema for this operation's options,
	// including defaults.
	Schema() map[string]any
}
