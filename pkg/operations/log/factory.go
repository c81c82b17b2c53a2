// Package log provides the log factory for registry integration.
package log

import (
	"context"

	"github.com/calder/automa/pkg/protocol"
)

// Factory creates log operation instances.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.OperationFactory {
	return &Factory{}
}

// Create creates a new log operation instance.
func (f *Factory) Create(_ context.Context, id string, options map[string]any) (protocol.Operation, error) {
	return New(id, options)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "log"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Log"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Emits a structured log line with interpolated message content"
}

// Schema returns the JSON schema for log options.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log. Path references are interpolated.",
			},
			"level": map[string]any{
				"type":    "string",
				"enum":    []string{"debug", "info", "warn", "error"},
				"default": "info",
			},
		},
		"required": []string{"message"},
	}
}
