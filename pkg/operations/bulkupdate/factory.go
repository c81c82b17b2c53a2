// Package bulkupdate provides the bulk update factory for registry
// integration.
package bulkupdate

import (
	"context"

	"github.com/calder/automa/pkg/protocol"
)

// Factory creates bulk update operation instances. A custom Mutator can be
// injected for deployments that mutate a real record store.
type Factory struct {
	mutator Mutator
}

// NewFactory creates a factory using the default merge mutator.
func NewFactory() protocol.OperationFactory {
	return &Factory{}
}

// NewFactoryWithMutator creates a factory that applies items through the
// given mutator.
func NewFactoryWithMutator(mutator Mutator) protocol.OperationFactory {
	return &Factory{mutator: mutator}
}

// Create creates a new bulk update operation instance.
func (f *Factory) Create(_ context.Context, id string, options map[string]any) (protocol.Operation, error) {
	return New(id, options, f.mutator)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "bulk_update"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Bulk Update"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Applies one update to many records sequentially with per-item outcomes and aggregate counts"
}

// Schema returns the JSON schema for bulk update options.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type":        "array",
				"description": "Records to mutate, processed in order.",
			},
			"update": map[string]any{
				"type":        "object",
				"description": "Fields merged into every item.",
			},
			"continue_on_error": map[string]any{
				"type":        "boolean",
				"default":     true,
				"description": "Keep going after a failing item. When false the first failure aborts with partial results.",
			},
			"max_items": map[string]any{
				"type":        "integer",
				"default":     DefaultMaxItems,
				"minimum":     1,
				"description": "Ceiling on the items list; larger lists are rejected before any item runs.",
			},
		},
		"required": []string{"items"},
	}
}
