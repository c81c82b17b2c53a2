// Package code provides the code operation factory for registry
// integration.
package code

import (
	"context"

	"github.com/calder/automa/pkg/protocol"
)

// Factory creates code operation instances.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.OperationFactory {
	return &Factory{}
}

// Create creates a new code operation instance.
func (f *Factory) Create(_ context.Context, id string, options map[string]any) (protocol.Operation, error) {
	return New(id, options)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "code"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Custom Code"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Runs user-authored JavaScript in a sandbox with an allow-listed capability surface and an enforced timeout"
}

// Schema returns the JSON schema for code operation options.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"script": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "JavaScript source. The return value becomes the operation output; console output is captured as logs.",
			},
			"timeout_ms": map[string]any{
				"type":        "integer",
				"default":     DefaultTimeoutMs,
				"minimum":     1,
				"maximum":     MaxTimeoutMs,
				"description": "Wall-clock limit for the script. On timeout the result is abandoned.",
			},
		},
		"required": []string{"script"},
	}
}
