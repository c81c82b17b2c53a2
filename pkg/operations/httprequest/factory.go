// Package httprequest provides the HTTP request factory for registry
// integration.
package httprequest

import (
	"context"

	"github.com/calder/automa/pkg/protocol"
)

// Factory creates HTTP request operation instances.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.OperationFactory {
	return &Factory{}
}

// Create creates a new HTTP request operation instance.
func (f *Factory) Create(_ context.Context, id string, options map[string]any) (protocol.Operation, error) {
	return New(id, options)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "http_request"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "HTTP Request"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Performs an HTTP request and exposes status, headers and decoded body to the chain"
}

// Schema returns the JSON schema for HTTP request options.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Request URL. Path references like $trigger.order.callback_url are interpolated before execution.",
			},
			"method": map[string]any{
				"type":    "string",
				"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"},
				"default": "GET",
			},
			"headers": map[string]any{
				"type": "object",
			},
			"body": map[string]any{
				"type": "string",
			},
			"timeout": map[string]any{
				"type":    "integer",
				"default": 30,
				"minimum": 1,
				"maximum": 300,
			},
		},
		"required": []string{"url"},
	}
}
