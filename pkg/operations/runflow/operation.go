// Package runflow provides the flow-chaining operation backing the
// another_flow trigger type: one flow triggers another with a payload
// shaped from its own chain.
package runflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/calder/automa/pkg/datachain"
	"github.com/calder/automa/pkg/models"
	"github.com/calder/automa/pkg/protocol"
)

// FlowTrigger is implemented by the flow service; an interface here keeps
// the operation free of a service dependency.
type FlowTrigger interface {
	Trigger(ctx context.Context, flowID string, payload map[string]any) (*models.ExecutionRecord, error)
}

// Operation triggers another flow and reports its execution outcome.
type Operation struct {
	id      string
	flowID  string
	payload map[string]any
	trigger FlowTrigger
}

// New creates a run_flow operation from interpolated options.
func New(id string, options map[string]any, trigger FlowTrigger) (*Operation, error) {
	if trigger == nil {
		return nil, errors.New("flow trigger not configured")
	}

	flowID, ok := options["flow_id"].(string)
	if !ok || flowID == "" {
		return nil, errors.New("missing required field 'flow_id'")
	}

	payload, _ := options["payload"].(map[string]any)

	return &Operation{id: id, flowID: flowID, payload: payload, trigger: trigger}, nil
}

// Execute triggers the target flow. The parent node fails when the target
// rejects the trigger or its run finishes failed, so failure edges can
// consume downstream problems.
func (o *Operation) Execute(ctx context.Context, chain *datachain.Context) (*protocol.Result, error) {
	payload := o.payload
	if payload == nil {
		payload = map[string]any{"parent_execution_id": chain.ExecutionID()}
	}

	record, err := o.trigger.Trigger(ctx, o.flowID, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to trigger flow %s: %w", o.flowID, err)
	}

	result := &protocol.Result{
		Output: map[string]any{
			"flow_id":      o.flowID,
			"execution_id": record.ID,
			"status":       string(record.Status),
		},
	}

	if record.Status == models.ExecutionStatusFailed {
		return result, fmt.Errorf("flow %s finished failed", o.flowID)
	}

	return result, nil
}
