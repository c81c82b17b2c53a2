package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/automa/pkg/models"
	"github.com/calder/automa/pkg/persistence"
	"github.com/calder/automa/pkg/persistence/file"
)

func newFlow(id, name string, status models.FlowStatus, createdAt time.Time) *models.Flow {
	return &models.Flow{
		ID:          id,
		Name:        name,
		Status:      status,
		TriggerType: models.TriggerTypeManual,
		Operations:  []*models.Operation{},
		Connections: []*models.Connection{},
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestFlowSaveAndGet(t *testing.T) {
	pers := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	flow := newFlow("flow-1", "orders", models.FlowStatusDraft, time.Now().UTC())
	require.NoError(t, pers.FlowRepository().Save(ctx, flow))

	stored, err := pers.FlowRepository().GetByID(ctx, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, "orders", stored.Name)
	assert.Equal(t, models.FlowStatusDraft, stored.Status)
}

func TestFlowGetMissingReturnsNotFound(t *testing.T) {
	pers := file.NewPersistence(t.TempDir())

	_, err := pers.FlowRepository().GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestFlowDeleteIsSoft(t *testing.T) {
	pers := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	flow := newFlow("flow-1", "orders", models.FlowStatusDraft, time.Now().UTC())
	require.NoError(t, pers.FlowRepository().Save(ctx, flow))
	require.NoError(t, pers.FlowRepository().Delete(ctx, "flow-1"))

	_, err := pers.FlowRepository().GetByID(ctx, "flow-1")
	assert.True(t, persistence.IsFlowNotFound(err))

	flows, err := pers.FlowRepository().List(ctx, persistence.ListFlowsOptions{})
	require.NoError(t, err)
	assert.Empty(t, flows)
}

func TestFlowListFiltersAndPaginates(t *testing.T) {
	pers := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, pers.FlowRepository().Save(ctx, newFlow("flow-1", "oldest", models.FlowStatusDraft, base)))
	require.NoError(t, pers.FlowRepository().Save(ctx, newFlow("flow-2", "middle", models.FlowStatusActive, base.Add(time.Hour))))
	require.NoError(t, pers.FlowRepository().Save(ctx, newFlow("flow-3", "newest", models.FlowStatusActive, base.Add(2*time.Hour))))

	// Newest first.
	flows, err := pers.FlowRepository().List(ctx, persistence.ListFlowsOptions{})
	require.NoError(t, err)
	require.Len(t, flows, 3)
	assert.Equal(t, "flow-3", flows[0].ID)
	assert.Equal(t, "flow-1", flows[2].ID)

	active := models.FlowStatusActive
	flows, err = pers.FlowRepository().List(ctx, persistence.ListFlowsOptions{Status: &active})
	require.NoError(t, err)
	assert.Len(t, flows, 2)

	flows, err = pers.FlowRepository().List(ctx, persistence.ListFlowsOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "flow-2", flows[0].ID)

	flows, err = pers.FlowRepository().List(ctx, persistence.ListFlowsOptions{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, flows)
}

func TestSaveCanonicalGraphReplacesLists(t *testing.T) {
	pers := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	flow := newFlow("flow-1", "orders", models.FlowStatusDraft, time.Now().UTC())
	require.NoError(t, pers.FlowRepository().Save(ctx, flow))

	operations := []*models.Operation{
		{ID: "op-1", OperationKey: "shape", OperationType: "transform"},
	}
	connections := []*models.Connection{
		{ID: "c-1", SourceID: models.TriggerNodeID, TargetID: "op-1", ConnectionType: models.ConnectionTypeDefault},
	}

	require.NoError(t, pers.FlowRepository().SaveCanonicalGraph(ctx, "flow-1", operations, connections))

	stored, err := pers.FlowRepository().GetByID(ctx, "flow-1")
	require.NoError(t, err)
	require.Len(t, stored.Operations, 1)
	require.Len(t, stored.Connections, 1)
	assert.Equal(t, "orders", stored.Name)
}

func newRecord(id, flowID string, startedAt time.Time) *models.ExecutionRecord {
	return &models.ExecutionRecord{
		ID:        id,
		FlowID:    flowID,
		Status:    models.ExecutionStatusRunning,
		StartedAt: startedAt,
		Results:   []models.OperationResult{},
	}
}

func TestExecutionAppendAndFinalize(t *testing.T) {
	pers := file.NewPersistence(t.TempDir())
	ctx := context.Background()
	executions := pers.ExecutionRepository()

	require.NoError(t, executions.Create(ctx, newRecord("exec-1", "flow-1", time.Now().UTC())))

	require.NoError(t, executions.AppendResult(ctx, "exec-1", models.OperationResult{
		NodeID: "a", Status: models.OperationStatusSuccess,
	}))
	require.NoError(t, executions.AppendResult(ctx, "exec-1", models.OperationResult{
		NodeID: "b", Status: models.OperationStatusFailure, Error: "boom",
	}))

	finishedAt := time.Now().UTC()
	require.NoError(t, executions.Finalize(ctx, "exec-1", models.ExecutionStatusFailed, finishedAt))

	stored, err := executions.GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, stored.Status)
	require.NotNil(t, stored.FinishedAt)
	require.Len(t, stored.Results, 2)
	assert.Equal(t, "a", stored.Results[0].NodeID)
	assert.Equal(t, "boom", stored.Results[1].Error)
}

func TestExecutionFinalizeIsOnce(t *testing.T) {
	pers := file.NewPersistence(t.TempDir())
	ctx := context.Background()
	executions := pers.ExecutionRepository()

	require.NoError(t, executions.Create(ctx, newRecord("exec-1", "flow-1", time.Now().UTC())))
	require.NoError(t, executions.Finalize(ctx, "exec-1", models.ExecutionStatusCompleted, time.Now().UTC()))

	err := executions.Finalize(ctx, "exec-1", models.ExecutionStatusFailed, time.Now().UTC())
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionFinalized(err))

	err = executions.AppendResult(ctx, "exec-1", models.OperationResult{NodeID: "late"})
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionFinalized(err))

	// The first terminal status wins.
	stored, err := executions.GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
}

func TestExecutionListByFlow(t *testing.T) {
	pers := file.NewPersistence(t.TempDir())
	ctx := context.Background()
	executions := pers.ExecutionRepository()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, executions.Create(ctx, newRecord("exec-1", "flow-1", base)))
	require.NoError(t, executions.Create(ctx, newRecord("exec-2", "flow-1", base.Add(time.Minute))))
	require.NoError(t, executions.Create(ctx, newRecord("exec-3", "flow-2", base.Add(2*time.Minute))))

	records, err := executions.ListByFlow(ctx, "flow-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "exec-2", records[0].ID)
	assert.Equal(t, "exec-1", records[1].ID)

	records, err = executions.ListByFlow(ctx, "flow-1", 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "exec-2", records[0].ID)

	_, err = executions.GetByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionNotFound(err))
}
