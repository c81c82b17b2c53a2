package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calder/automa/pkg/models"
	"github.com/calder/automa/pkg/persistence"
)

// ExecutionRepository handles execution-record database operations. The
// audit trail is a JSONB array appended to in place; finalization is
// guarded by the finished_at column so it happens at most once.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
	id
  , flow_id
  , status
  , trigger
  , started_at
  , finished_at
  , results
`

// Create inserts a new execution record.
func (r *ExecutionRepository) Create(ctx context.Context, record *models.ExecutionRecord) error {
	trigger, err := marshalJSONB(record.Trigger)
	if err != nil {
		return fmt.Errorf("failed to encode trigger data: %w", err)
	}

	results := record.Results
	if results == nil {
		results = []models.OperationResult{}
	}

	resultsDoc, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	query := `
		INSERT INTO executions (id, flow_id, status, trigger, started_at, finished_at, results)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.FlowID, record.Status, trigger,
		record.StartedAt, record.FinishedAt, resultsDoc,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution %s: %w", record.ID, err)
	}

	return nil
}

// GetByID returns the execution record with the given id.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE id = $1
	`

	record, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.ExecutionNotFoundError{ExecutionID: id}
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return record, nil
}

// AppendResult appends one operation result to the record's audit trail.
// Finalized records reject appends.
func (r *ExecutionRepository) AppendResult(ctx context.Context, executionID string, result models.OperationResult) error {
	doc, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	query := `
		UPDATE executions
		SET results = results || $2::jsonb
		WHERE id = $1 AND finished_at IS NULL
	`

	return r.guardedUpdate(ctx, executionID, query, doc)
}

// Finalize sets the terminal status and finish time. The finished_at guard
// makes a second finalize fail with ErrExecutionFinalized.
func (r *ExecutionRepository) Finalize(ctx context.Context, executionID string, status models.ExecutionStatus, finishedAt time.Time) error {
	query := `
		UPDATE executions
		SET status = $2, finished_at = $3
		WHERE id = $1 AND finished_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, executionID, status, finishedAt)
	if err != nil {
		return fmt.Errorf("failed to finalize execution %s: %w", executionID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finalize result for execution %s: %w", executionID, err)
	}

	if affected == 0 {
		return r.classifyMiss(ctx, executionID)
	}

	return nil
}

// ListByFlow returns up to limit records for the flow, most recent first.
func (r *ExecutionRepository) ListByFlow(ctx context.Context, flowID string, limit int) ([]*models.ExecutionRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE flow_id = $1
		ORDER BY started_at DESC, id
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, flowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*models.ExecutionRecord, 0)

	for rows.Next() {
		record, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return records, nil
}

// guardedUpdate runs an update restricted to non-finalized records and
// translates a zero-row result into the right sentinel.
func (r *ExecutionRepository) guardedUpdate(ctx context.Context, executionID, query string, args ...any) error {
	params := append([]any{executionID}, args...)

	result, err := r.db.ExecContext(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("failed to update execution %s: %w", executionID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result for execution %s: %w", executionID, err)
	}

	if affected == 0 {
		return r.classifyMiss(ctx, executionID)
	}

	return nil
}

// classifyMiss distinguishes a missing record from an already finalized one.
func (r *ExecutionRepository) classifyMiss(ctx context.Context, executionID string) error {
	var exists bool

	err := r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM executions WHERE id = $1)", executionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up execution %s: %w", executionID, err)
	}

	if exists {
		return &persistence.ExecutionFinalizedError{ExecutionID: executionID}
	}

	return &persistence.ExecutionNotFoundError{ExecutionID: executionID}
}

func scanExecution(row rowScanner) (*models.ExecutionRecord, error) {
	var (
		record  models.ExecutionRecord
		trigger []byte
		results []byte
	)

	err := row.Scan(
		&record.ID, &record.FlowID, &record.Status, &trigger,
		&record.StartedAt, &record.FinishedAt, &results,
	)
	if err != nil {
		return nil, err
	}

	if len(trigger) > 0 {
		if err := json.Unmarshal(trigger, &record.Trigger); err != nil {
			return nil, fmt.Errorf("failed to decode trigger data: %w", err)
		}
	}

	if err := json.Unmarshal(results, &record.Results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}

	return &record, nil
}
