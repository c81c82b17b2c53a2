// Package transform provides the transform factory for registry
// integration.
package transform

import (
	"context"

	"github.com/calder/automa/pkg/protocol"
)

// Factory creates transform operation instances.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.OperationFactory {
	return &Factory{}
}

// Create creates a new transform operation instance.
func (f *Factory) Create(_ context.Context, id string, options map[string]any) (protocol.Operation, error) {
	return New(id, options)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "transform"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Transform"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Shapes a new payload from a value template with access to $trigger, $last, $input and $context"
}

// Schema returns the JSON schema for transform options.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value": map[string]any{
				"description": "Template for the new payload. May be any JSON value; path references are substituted recursively.",
				"examples": []any{
					map[string]any{"email": "$trigger.customer.email", "total": "$last.total"},
					"order $trigger.order_id for $trigger.customer.name",
				},
			},
		},
		"required": []string{"value"},
	}
}
