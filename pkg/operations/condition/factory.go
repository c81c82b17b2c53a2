// Package condition provides the condition factory for registry
// integration.
package condition

import (
	"context"

	"github.com/calder/automa/pkg/protocol"
)

// Factory creates condition operation instances.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.OperationFactory {
	return &Factory{}
}

// Create creates a new condition operation instance.
func (f *Factory) Create(_ context.Context, id string, options map[string]any) (protocol.Operation, error) {
	return New(id, options)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "condition"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Condition"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Compares two values; a false verdict routes the branch through failure-typed connections"
}

// Schema returns the JSON schema for condition options.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"left": map[string]any{
				"description": "Left operand, usually a path reference like $last.total.",
			},
			"operator": map[string]any{
				"type": "string",
				"enum": []string{"eq", "ne", "gt", "gte", "lt", "lte", "contains", "exists"},
			},
			"right": map[string]any{
				"description": "Right operand. Ignored for the exists operator.",
			},
		},
		"required": []string{"operator"},
	}
}
