// Package bulkupdate provides the batch-mutation operation: it applies one
// update to many records sequentially, recording a per-item outcome and
// aggregate counts.
package bulkupdate

import (
	"context"
	"errors"
	"fmt"

	"github.com/calder/automa/pkg/datachain"
	"github.com/calder/automa/pkg/protocol"
)

// DefaultMaxItems is the item ceiling when no max_items option is set.
const DefaultMaxItems = 100

// ErrTooManyItems indicates an items list exceeding the configured
// ceiling. The node is rejected before any item runs.
var ErrTooManyItems = errors.New("items exceed max_items ceiling")

// Mutator applies the update to one item. The default merges the update
// map into the item; callers with a real record store can supply their
// own.
type Mutator interface {
	Apply(ctx context.Context, item any, update map[string]any) (any, error)
}

// MutatorFunc adapts a function to the Mutator interface.
type MutatorFunc func(ctx context.Context, item any, update map[string]any) (any, error)

func (f MutatorFunc) Apply(ctx context.Context, item any, update map[string]any) (any, error) {
	return f(ctx, item, update)
}

// ItemResult is one entry of the per-item outcome array, in original index
// order.
type ItemResult struct {
	Index  int    `json:"index"`
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Operation processes an items list sequentially.
type Operation struct {
	id              string
	items           []any
	update          map[string]any
	continueOnError bool
	maxItems        int
	mutator         Mutator
}

// New creates a bulk update operation from interpolated options.
func New(id string, options map[string]any, mutator Mutator) (*Operation, error) {
	rawItems, ok := options["items"].([]any)
	if !ok {
		return nil, errors.New("missing required field 'items'")
	}

	op := &Operation{
		id:              id,
		items:           rawItems,
		continueOnError: true,
		maxItems:        DefaultMaxItems,
		mutator:         mutator,
	}

	if update, ok := options["update"].(map[string]any); ok {
		op.update = update
	}

	if cont, ok := options["continue_on_error"].(bool); ok {
		op.continueOnError = cont
	}

	switch v := options["max_items"].(type) {
	case float64:
		op.maxItems = int(v)
	case int:
		op.maxItems = v
	}

	if op.maxItems <= 0 {
		return nil, errors.New("max_items must be positive")
	}

	if op.mutator == nil {
		op.mutator = MutatorFunc(mergeMutate)
	}

	return op, nil
}

// Execute processes the items in order. With continue_on_error the
// operation always completes and reports aggregate counts; without it the
// first failure aborts and returns the partial results alongside the
// triggering error.
func (o *Operation) Execute(ctx context.Context, _ *datachain.Context) (*protocol.Result, error) {
	if len(o.items) > o.maxItems {
		return nil, fmt.Errorf("%w: %d items, ceiling %d", ErrTooManyItems, len(o.items), o.maxItems)
	}

	results := make([]ItemResult, 0, len(o.items))
	updated := 0
	failed := 0

	for index, item := range o.items {
		if err := ctx.Err(); err != nil {
			return &protocol.Result{Output: o.summary(updated, failed, results)}, err
		}

		mutated, err := o.mutator.Apply(ctx, item, o.update)
		if err != nil {
			failed++
			results = append(results, ItemResult{Index: index, OK: false, Error: err.Error()})

			if !o.continueOnError {
				return &protocol.Result{Output: o.summary(updated, failed, results)},
					fmt.Errorf("item %d failed: %w", index, err)
			}

			continue
		}

		updated++
		results = append(results, ItemResult{Index: index, OK: true, Result: mutated})
	}

	return &protocol.Result{Output: o.summary(updated, failed, results)}, nil
}

func (o *Operation) summary(updated, failed int, results []ItemResult) map[string]any {
	return map[string]any{
		"updated": updated,
		"failed":  failed,
		"results": results,
	}
}

// mergeMutate is the default per-item mutation: a shallow merge of the
// update map into an object item. Non-object items fail the item.
func mergeMutate(_ context.Context, item any, update map[string]any) (any, error) {
	record, ok := item.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("item is not an object: %T", item)
	}

	mutated := make(map[string]any, len(record)+len(update))
	for k, v := range record {
		mutated[k] = v
	}

	for k, v := range update {
		mutated[k] = v
	}

	return mutated, nil
}
