package executor_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/automa/pkg/eventbus"
	"github.com/calder/automa/pkg/events"
	"github.com/calder/automa/pkg/executor"
	"github.com/calder/automa/pkg/graph"
	"github.com/calder/automa/pkg/models"
	"github.com/calder/automa/pkg/persistence"
	"github.com/calder/automa/pkg/persistence/file"
	"github.com/calder/automa/pkg/recorder"
	"github.com/calder/automa/pkg/registry"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *capturingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]events.EventType, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.GetType())
	}

	return types
}

type harness struct {
	executor   *executor.Executor
	executions persistence.ExecutionRepository
	publisher  *capturingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pers := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultOperations()

	publisher := &capturingPublisher{}
	rec := recorder.NewRecorder(pers.ExecutionRepository(), logger)

	return &harness{
		executor:   executor.NewExecutor(reg, rec, logger, executor.WithEventPublisher(publisher)),
		executions: pers.ExecutionRepository(),
		publisher:  publisher,
	}
}

func transformOp(id, key string, value any) *models.Operation {
	return &models.Operation{
		ID:            id,
		OperationKey:  key,
		OperationType: "transform",
		Options:       map[string]any{"value": value},
	}
}

// failingOp is a condition that always evaluates false.
func failingOp(id, key string) *models.Operation {
	return &models.Operation{
		ID:            id,
		OperationKey:  key,
		OperationType: "condition",
		Options:       map[string]any{"left": 1.0, "operator": "gt", "right": 2.0},
	}
}

func conn(source, target string, connType models.ConnectionType) *models.Connection {
	return &models.Connection{
		ID:             source + "->" + target,
		SourceID:       source,
		TargetID:       target,
		ConnectionType: connType,
	}
}

func buildFlow(t *testing.T, operations []*models.Operation, connections []*models.Connection) (*models.Flow, *graph.Graph) {
	t.Helper()

	g, err := graph.New(operations, connections)
	require.NoError(t, err)

	return &models.Flow{
		ID:          "flow-1",
		Name:        "orders",
		Status:      models.FlowStatusActive,
		TriggerType: models.TriggerTypeManual,
		Operations:  operations,
		Connections: connections,
	}, g
}

func nodeOrder(record *models.ExecutionRecord) []string {
	order := make([]string, 0, len(record.Results))
	for _, result := range record.Results {
		order = append(order, result.NodeID)
	}

	return order
}

func TestExecuteLinearFlow(t *testing.T) {
	h := newHarness(t)

	flow, g := buildFlow(t,
		[]*models.Operation{
			transformOp("a", "shape", "$trigger.name"),
			transformOp("b", "echo", "$last"),
		},
		[]*models.Connection{
			conn(models.TriggerNodeID, "a", models.ConnectionTypeDefault),
			conn("a", "b", models.ConnectionTypeDefault),
		},
	)

	record, err := h.executor.Execute(context.Background(), flow, g, map[string]any{"name": "jane"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, record.Status)
	require.NotNil(t, record.FinishedAt)
	assert.Equal(t, []string{"a", "b"}, nodeOrder(record))
	assert.Equal(t, "jane", record.Results[0].Output)
	assert.Equal(t, "jane", record.Results[1].Output)

	// The audit trail is persisted, not just returned.
	stored, err := h.executions.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
	assert.Len(t, stored.Results, 2)
	require.NotNil(t, stored.FinishedAt)

	assert.Equal(t, []events.EventType{
		events.ExecutionStartedEvent,
		events.ExecutionCompletedEvent,
	}, h.publisher.types())
}

func TestExecuteDiamondVisitsJoinOnce(t *testing.T) {
	h := newHarness(t)

	flow, g := buildFlow(t,
		[]*models.Operation{
			transformOp("a", "start", "one"),
			transformOp("b", "left", "two"),
			transformOp("c", "right", "three"),
			transformOp("d", "join", "four"),
		},
		[]*models.Connection{
			conn(models.TriggerNodeID, "a", models.ConnectionTypeDefault),
			conn("a", "b", models.ConnectionTypeDefault),
			conn("a", "c", models.ConnectionTypeDefault),
			conn("b", "d", models.ConnectionTypeDefault),
			conn("c", "d", models.ConnectionTypeDefault),
		},
	)

	record, err := h.executor.Execute(context.Background(), flow, g, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, record.Status)
	assert.Equal(t, []string{"a", "b", "c", "d"}, nodeOrder(record))
}

func TestExecuteFailureEdgeConsumesFailure(t *testing.T) {
	h := newHarness(t)

	flow, g := buildFlow(t,
		[]*models.Operation{
			failingOp("check", "check"),
			transformOp("handler", "handle", "$last.error"),
		},
		[]*models.Connection{
			conn(models.TriggerNodeID, "check", models.ConnectionTypeDefault),
			conn("check", "handler", models.ConnectionTypeFailure),
		},
	)

	record, err := h.executor.Execute(context.Background(), flow, g, nil)
	require.NoError(t, err)

	// A consumed failure does not fail the run.
	assert.Equal(t, models.ExecutionStatusCompleted, record.Status)
	require.Len(t, record.Results, 2)

	assert.Equal(t, models.OperationStatusFailure, record.Results[0].Status)
	assert.Equal(t, "condition not met", record.Results[0].Error)

	// The condition still reports its verdict even though it failed.
	verdict, ok := record.Results[0].Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, verdict["result"])

	// The handler sees the failure payload through the chain.
	assert.Equal(t, models.OperationStatusSuccess, record.Results[1].Status)
	assert.Equal(t, "condition not met", record.Results[1].Output)
}

func TestExecuteFailedNodeKeepsPartialOutput(t *testing.T) {
	h := newHarness(t)

	bulk := &models.Operation{
		ID:            "bulk",
		OperationKey:  "bulk",
		OperationType: "bulk_update",
		Options: map[string]any{
			"items": []any{
				map[string]any{"id": 1},
				"not an object",
				map[string]any{"id": 3},
			},
			"update":            map[string]any{"status": "done"},
			"continue_on_error": false,
		},
	}

	flow, g := buildFlow(t,
		[]*models.Operation{
			bulk,
			transformOp("handler", "handle", "$last.output.updated"),
		},
		[]*models.Connection{
			conn(models.TriggerNodeID, "bulk", models.ConnectionTypeDefault),
			conn("bulk", "handler", models.ConnectionTypeFailure),
		},
	)

	record, err := h.executor.Execute(context.Background(), flow, g, nil)
	require.NoError(t, err)

	require.Len(t, record.Results, 2)
	assert.Equal(t, models.OperationStatusFailure, record.Results[0].Status)

	// The abort on item 1 must not erase the partial summary.
	summary, ok := record.Results[0].Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, summary["updated"])
	assert.Equal(t, 1, summary["failed"])

	// The failure handler can reach the partial counts through the chain.
	assert.Equal(t, 1, record.Results[1].Output)
}

func TestExecuteUnhandledFailureEndsBranch(t *testing.T) {
	h := newHarness(t)

	flow, g := buildFlow(t,
		[]*models.Operation{
			failingOp("check", "check"),
			transformOp("after", "after", "unreached"),
			transformOp("sibling", "sibling", "still runs"),
		},
		[]*models.Connection{
			conn(models.TriggerNodeID, "check", models.ConnectionTypeDefault),
			conn(models.TriggerNodeID, "sibling", models.ConnectionTypeDefault),
			conn("check", "after", models.ConnectionTypeSuccess),
		},
	)

	record, err := h.executor.Execute(context.Background(), flow, g, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, record.Status)

	// The failed branch stops; the sibling branch still completes.
	assert.Equal(t, []string{"check", "sibling"}, nodeOrder(record))
	assert.Equal(t, "still runs", record.Results[1].Output)

	assert.Equal(t, []events.EventType{
		events.ExecutionStartedEvent,
		events.ExecutionFailedEvent,
	}, h.publisher.types())
}

func TestExecuteSuccessPrefersSuccessEdges(t *testing.T) {
	h := newHarness(t)

	flow, g := buildFlow(t,
		[]*models.Operation{
			transformOp("a", "start", "ok"),
			transformOp("b", "taken", "taken"),
			transformOp("c", "skipped", "skipped"),
		},
		[]*models.Connection{
			conn(models.TriggerNodeID, "a", models.ConnectionTypeDefault),
			conn("a", "b", models.ConnectionTypeSuccess),
			conn("a", "c", models.ConnectionTypeFailure),
		},
	)

	record, err := h.executor.Execute(context.Background(), flow, g, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, record.Status)
	assert.Equal(t, []string{"a", "b"}, nodeOrder(record))
}

func TestExecuteCancelledContext(t *testing.T) {
	h := newHarness(t)

	flow, g := buildFlow(t,
		[]*models.Operation{transformOp("a", "start", "ok")},
		[]*models.Connection{conn(models.TriggerNodeID, "a", models.ConnectionTypeDefault)},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	record, err := h.executor.Execute(ctx, flow, g, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCancelled, record.Status)
	assert.Empty(t, record.Results)

	assert.Equal(t, []events.EventType{
		events.ExecutionStartedEvent,
		events.ExecutionCancelledEvent,
	}, h.publisher.types())
}
