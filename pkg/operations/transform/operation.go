// Package transform provides the payload-shaping operation: its options
// are interpolated against the chain before execution, so the configured
// value template becomes the output directly.
package transform

import (
	"context"
	"errors"

	"github.com/calder/automa/pkg/datachain"
	"github.com/calder/automa/pkg/protocol"
)

// Operation emits a new payload shaped from interpolated options.
type Operation struct {
	id    string
	value any
}

// New creates a transform operation from interpolated options.
func New(id string, options map[string]any) (*Operation, error) {
	value, ok := options["value"]
	if !ok {
		return nil, errors.New("missing required field 'value'")
	}

	return &Operation{id: id, value: value}, nil
}

// Execute returns the shaped value. Interpolation already happened, so
// this is a pure pass-through of the resolved template.
func (o *Operation) Execute(_ context.Context, _ *datachain.Context) (*protocol.Result, error) {
	return &protocol.Result{Output: o.value}, nil
}
