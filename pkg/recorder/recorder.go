// Package recorder writes the audit trail of flow executions. It wraps the
// execution repository with the lifecycle rules: a record begins exactly
// once, results append in visit order, and finishing is idempotent-hostile,
// a second finish is an error rather than a silent overwrite.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/calder/automa/pkg/models"
	"github.com/calder/automa/pkg/persistence"
)

// Recorder creates and updates execution records.
type Recorder struct {
	executions persistence.ExecutionRepository
	logger     *slog.Logger
}

// NewRecorder creates a recorder on top of the given execution repository.
func NewRecorder(executions persistence.ExecutionRepository, logger *slog.Logger) *Recorder {
	return &Recorder{
		executions: executions,
		logger:     logger.With("module", "recorder"),
	}
}

// Begin creates a new running execution record for the flow and returns it.
func (r *Recorder) Begin(ctx context.Context, flowID string, trigger map[string]any) (*models.ExecutionRecord, error) {
	record := &models.ExecutionRecord{
		ID:        uuid.New().String(),
		FlowID:    flowID,
		Status:    models.ExecutionStatusRunning,
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
		Results:   []models.OperationResult{},
	}

	if err := r.executions.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to begin execution for flow %s: %w", flowID, err)
	}

	r.logger.InfoContext(ctx, "Execution started", "execution_id", record.ID, "flow_id", flowID)

	return record, nil
}

// Record appends one operation result to the execution's audit trail.
func (r *Recorder) Record(ctx context.Context, executionID string, result models.OperationResult) error {
	if err := r.executions.AppendResult(ctx, executionID, result); err != nil {
		return fmt.Errorf("failed to record result for execution %s: %w", executionID, err)
	}

	r.logger.DebugContext(ctx, "Operation recorded",
		"execution_id", executionID,
		"node_id", result.NodeID,
		"status", result.Status,
		"duration_ms", result.DurationMs,
	)

	return nil
}

// Finish stamps the execution with its terminal status. Finishing an
// already finished execution returns ErrExecutionFinalized.
func (r *Recorder) Finish(ctx context.Context, executionID string, status models.ExecutionStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("cannot finish execution %s with non-terminal status %q", executionID, status)
	}

	if err := r.executions.Finalize(ctx, executionID, status, time.Now().UTC()); err != nil {
		if persistence.IsExecutionFinalized(err) {
			return &AlreadyFinalizedError{ExecutionID: executionID}
		}

		return fmt.Errorf("failed to finish execution %s: %w", executionID, err)
	}

	r.logger.InfoContext(ctx, "Execution finished", "execution_id", executionID, "status", status)

	return nil
}
