// Package runflow provides the run_flow factory for registry integration.
package runflow

import (
	"context"

	"github.com/calder/automa/pkg/protocol"
)

// Factory creates run_flow operation instances bound to a flow trigger.
type Factory struct {
	trigger FlowTrigger
}

// NewFactory creates a factory bound to the given trigger, usually the
// flow service.
func NewFactory(trigger FlowTrigger) protocol.OperationFactory {
	return &Factory{trigger: trigger}
}

// Create creates a new run_flow operation instance.
func (f *Factory) Create(_ context.Context, id string, options map[string]any) (protocol.Operation, error) {
	return New(id, options, f.trigger)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "run_flow"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Run Flow"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Triggers another flow with a payload shaped from this chain"
}

// Schema returns the JSON schema for run_flow options.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"flow_id": map[string]any{
				"type":        "string",
				"description": "Target flow. Must be active.",
			},
			"payload": map[string]any{
				"type":        "object",
				"description": "Trigger payload for the target flow. Defaults to the parent execution reference.",
			},
		},
		"required": []string{"flow_id"},
	}
}
