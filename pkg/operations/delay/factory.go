// Package delay provides the delay factory for registry integration.
package delay

import (
	"context"

	"github.com/calder/automa/pkg/protocol"
)

// Factory creates delay operation instances.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.OperationFactory {
	return &Factory{}
}

// Create creates a new delay operation instance.
func (f *Factory) Create(_ context.Context, id string, options map[string]any) (protocol.Operation, error) {
	return New(id, options)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "delay"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Delay"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Pauses the branch for a fixed duration"
}

// Schema returns the JSON schema for delay options.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration_ms": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"maximum": MaxDelayMs,
			},
		},
		"required": []string{"duration_ms"},
	}
}
