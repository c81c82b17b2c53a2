package runflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/automa/pkg/datachain"
	"github.com/calder/automa/pkg/models"
	"github.com/calder/automa/pkg/operations/runflow"
)

type fakeTrigger struct {
	lastFlowID  string
	lastPayload map[string]any
	record      *models.ExecutionRecord
	err         error
}

func (f *fakeTrigger) Trigger(_ context.Context, flowID string, payload map[string]any) (*models.ExecutionRecord, error) {
	f.lastFlowID = flowID
	f.lastPayload = payload

	return f.record, f.err
}

func newChain() *datachain.Context {
	return datachain.NewContext("flow-parent", "exec-parent", nil)
}

func TestExecuteTriggersTargetFlow(t *testing.T) {
	trigger := &fakeTrigger{
		record: &models.ExecutionRecord{ID: "exec-child", Status: models.ExecutionStatusCompleted},
	}

	operation, err := runflow.New("node-1", map[string]any{
		"flow_id": "flow-child",
		"payload": map[string]any{"order_id": "o-1"},
	}, trigger)
	require.NoError(t, err)

	result, err := operation.Execute(context.Background(), newChain())
	require.NoError(t, err)

	assert.Equal(t, "flow-child", trigger.lastFlowID)
	assert.Equal(t, map[string]any{"order_id": "o-1"}, trigger.lastPayload)

	output := result.Output.(map[string]any)
	assert.Equal(t, "exec-child", output["execution_id"])
	assert.Equal(t, "completed", output["status"])
}

func TestExecuteDefaultsPayloadToParentReference(t *testing.T) {
	trigger := &fakeTrigger{
		record: &models.ExecutionRecord{ID: "exec-child", Status: models.ExecutionStatusCompleted},
	}

	operation, err := runflow.New("node-1", map[string]any{"flow_id": "flow-child"}, trigger)
	require.NoError(t, err)

	_, err = operation.Execute(context.Background(), newChain())
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"parent_execution_id": "exec-parent"}, trigger.lastPayload)
}

func TestExecuteFailedChildRunFailsNode(t *testing.T) {
	trigger := &fakeTrigger{
		record: &models.ExecutionRecord{ID: "exec-child", Status: models.ExecutionStatusFailed},
	}

	operation, err := runflow.New("node-1", map[string]any{"flow_id": "flow-child"}, trigger)
	require.NoError(t, err)

	result, err := operation.Execute(context.Background(), newChain())
	require.Error(t, err)

	// The child's execution reference survives for failure-edge consumers.
	require.NotNil(t, result)
	assert.Equal(t, "failed", result.Output.(map[string]any)["status"])
}

func TestExecuteTriggerRejectionFailsNode(t *testing.T) {
	trigger := &fakeTrigger{err: errors.New("flow is not active")}

	operation, err := runflow.New("node-1", map[string]any{"flow_id": "flow-child"}, trigger)
	require.NoError(t, err)

	result, err := operation.Execute(context.Background(), newChain())
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := runflow.New("node-1", map[string]any{}, &fakeTrigger{})
	require.Error(t, err)

	_, err = runflow.New("node-1", map[string]any{"flow_id": "flow-child"}, nil)
	require.Error(t, err)
}
