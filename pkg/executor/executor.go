// Package executor walks a compiled flow graph from the trigger and runs
// every reachable operation, routing between nodes by outcome. Node failures
// are contained: a failure edge consumes them, otherwise only that branch
// ends while sibling branches keep running.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/calder/automa/pkg/datachain"
	"github.com/calder/automa/pkg/eventbus"
	"github.com/calder/automa/pkg/events"
	"github.com/calder/automa/pkg/graph"
	"github.com/calder/automa/pkg/models"
	"github.com/calder/automa/pkg/otelhelper"
	"github.com/calder/automa/pkg/protocol"
	"github.com/calder/automa/pkg/recorder"
	"github.com/calder/automa/pkg/registry"
)

const tracerName = "automa.executor"

// Executor runs compiled flow graphs.
type Executor struct {
	registry  *registry.Registry
	recorder  *recorder.Recorder
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	logger    *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithEventPublisher makes the executor publish lifecycle events.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Executor) {
		e.publisher = publisher
	}
}

// WithTracer overrides the tracer used for run and node spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

// NewExecutor creates an executor over the given registry and recorder.
func NewExecutor(reg *registry.Registry, rec *recorder.Recorder, logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		registry: reg,
		recorder: rec,
		tracer:   otel.Tracer(tracerName),
		logger:   logger.With("module", "executor"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute runs the flow's graph against the trigger payload and returns the
// finalized execution record. The graph snapshot is fixed for the whole
// run; concurrent edits to the flow do not affect it. An error is returned
// only for infrastructure faults; a run that merely had failing nodes
// returns a record with status failed and a nil error.
func (e *Executor) Execute(ctx context.Context, flow *models.Flow, g *graph.Graph, trigger map[string]any) (*models.ExecutionRecord, error) {
	record, err := e.recorder.Begin(ctx, flow.ID, trigger)
	if err != nil {
		return nil, err
	}

	runCtx, runSpan := otelhelper.StartSpan(ctx, e.tracer, "flow.execute",
		attribute.String(otelhelper.FlowIDKey, flow.ID),
		attribute.String(otelhelper.FlowNameKey, flow.Name),
		attribute.String(otelhelper.ExecutionIDKey, record.ID),
	)
	defer runSpan.End()

	e.publish(runCtx, flow.ID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, flow.ID),
		ExecutionID: record.ID,
	})

	chain := datachain.NewContext(flow.ID, record.ID, trigger)

	status := e.walk(runCtx, g, chain, record)

	if err := e.recorder.Finish(ctx, record.ID, status); err != nil {
		otelhelper.SetError(runSpan, err)

		return nil, err
	}

	finishedAt := time.Now().UTC()
	record.Status = status
	record.FinishedAt = &finishedAt

	e.publishFinal(ctx, flow.ID, record)

	return record, nil
}

// walk visits nodes breadth-first from the trigger's successors and returns
// the run's terminal status. Each node is visited at most once per run.
func (e *Executor) walk(ctx context.Context, g *graph.Graph, chain *datachain.Context, record *models.ExecutionRecord) models.ExecutionStatus {
	queue := g.NextNodes(models.TriggerNodeID, models.OutcomeSuccess)
	visited := make(map[string]bool, g.Size())
	failed := false

	for len(queue) > 0 {
		if ctx.Err() != nil {
			e.logger.WarnContext(ctx, "Execution cancelled", "execution_id", record.ID)

			return models.ExecutionStatusCancelled
		}

		nodeID := queue[0]
		queue = queue[1:]

		if visited[nodeID] {
			continue
		}

		visited[nodeID] = true

		op, ok := g.Node(nodeID)
		if !ok {
			// Graph construction rejects dangling edges, so this is
			// unreachable unless the graph was mutated.
			continue
		}

		result, outcome := e.runNode(ctx, op, chain)

		record.Results = append(record.Results, result)

		if err := e.recorder.Record(ctx, record.ID, result); err != nil {
			e.logger.ErrorContext(ctx, "Failed to record operation result",
				"execution_id", record.ID, "node_id", op.ID, "error", err)
		}

		next := g.NextNodes(op.ID, outcome)

		if outcome == models.OutcomeFailure && len(next) == 0 {
			failed = true

			continue
		}

		queue = append(queue, next...)
	}

	if ctx.Err() != nil {
		return models.ExecutionStatusCancelled
	}

	if failed {
		return models.ExecutionStatusFailed
	}

	return models.ExecutionStatusCompleted
}

// runNode executes one operation and classifies its outcome. Options are
// interpolated against the data chain before the operation is built, so
// every operation receives concrete values.
func (e *Executor) runNode(ctx context.Context, op *models.Operation, chain *datachain.Context) (models.OperationResult, models.Outcome) {
	nodeCtx, span := otelhelper.StartSpan(ctx, e.tracer, "node.execute",
		attribute.String(otelhelper.NodeIDKey, op.ID),
		attribute.String(otelhelper.OperationKeyKey, op.OperationKey),
		attribute.String(otelhelper.OperationTypeKey, op.OperationType),
	)
	defer span.End()

	started := time.Now()
	options := chain.InterpolateOptions(op.Options)

	result := models.OperationResult{
		NodeID: op.ID,
		Status: models.OperationStatusSuccess,
	}

	operation, err := e.registry.Create(nodeCtx, op.OperationType, op.ID, options)
	if err == nil {
		var res *protocol.Result

		res, err = operation.Execute(nodeCtx, chain)
		if res != nil {
			// A failing Execute may still return captured logs and a
		// partial output.
			result.Output = res.Output
			result.Logs = res.Logs
		}
	}

	result.DurationMs = time.Since(started).Milliseconds()

	if err != nil {
		result.Status = models.OperationStatusFailure
		result.Error = err.Error()

		// Operations such as bulk_update return a partial summary next to the
		// error; keep it on the record and expose it to failure handlers.
		failure := map[string]any{"error": err.Error()}
		if result.Output != nil {
			failure["output"] = result.Output
		}

		chain.SetResult(op.OperationKey, failure)
		otelhelper.SetError(span, err)
		e.logger.WarnContext(nodeCtx, "Operation failed",
			"node_id", op.ID,
			"operation_key", op.OperationKey,
			"operation_type", op.OperationType,
			"error", err,
		)

		return result, models.OutcomeFailure
	}

	chain.SetResult(op.OperationKey, result.Output)
	e.logger.DebugContext(nodeCtx, "Operation succeeded",
		"node_id", op.ID,
		"operation_key", op.OperationKey,
		"duration_ms", result.DurationMs,
	)

	return result, models.OutcomeSuccess
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Executor) publishFinal(ctx context.Context, flowID string, record *models.ExecutionRecord) {
	duration := record.FinishedAt.Sub(record.StartedAt)

	switch record.Status {
	case models.ExecutionStatusCompleted:
		e.publish(ctx, flowID, events.ExecutionCompleted{
			BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, flowID),
			ExecutionID: record.ID,
			Duration:    duration,
		})
	case models.ExecutionStatusFailed:
		e.publish(ctx, flowID, events.ExecutionFailed{
			BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, flowID),
			ExecutionID: record.ID,
			Error:       firstFailure(record),
			Duration:    duration,
		})
	case models.ExecutionStatusCancelled:
		e.publish(ctx, flowID, events.ExecutionCancelled{
			BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, flowID),
			ExecutionID: record.ID,
			Duration:    duration,
		})
	}
}

func firstFailure(record *models.ExecutionRecord) string {
	for _, result := range record.Results {
		if result.Status == models.OperationStatusFailure {
			return fmt.Sprintf("node %s: %s", result.NodeID, result.Error)
		}
	}

	return ""
}
