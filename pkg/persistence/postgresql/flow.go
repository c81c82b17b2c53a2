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

// FlowRepository handles flow-related database operations. The operation
// and connection lists are stored as JSONB documents on the flow row, so a
// flow is always read and written as one unit.
type FlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(db *sql.DB, logger *slog.Logger) *FlowRepository {
	return &FlowRepository{db: db, logger: logger}
}

const flowColumns = `
	id
  , name
  , description
  , status
  , trigger_type
  , trigger_config
  , operations
  , connections
  , canvas_state
  , created_at
  , updated_at
  , deleted_at
`

// List returns flows filtered by status, most recent first.
func (r *FlowRepository) List(ctx context.Context, opts persistence.ListFlowsOptions) ([]*models.Flow, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	query := `
		SELECT ` + flowColumns + `
		FROM flows
		WHERE deleted_at IS NULL
		  AND ($1::varchar IS NULL OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	var status *string

	if opts.Status != nil {
		value := string(*opts.Status)
		status = &value
	}

	rows, err := r.db.QueryContext(ctx, query, status, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	flows := make([]*models.Flow, 0)

	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}

		flows = append(flows, flow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flows: %w", err)
	}

	return flows, nil
}

// GetByID returns the flow with the given id.
func (r *FlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	query := `
		SELECT ` + flowColumns + `
		FROM flows
		WHERE id = $1 AND deleted_at IS NULL
	`

	flow, err := scanFlow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.FlowNotFoundError{FlowID: id}
		}

		return nil, fmt.Errorf("failed to scan flow: %w", err)
	}

	return flow, nil
}

// Save upserts the flow row.
func (r *FlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	triggerConfig, err := marshalJSONB(flow.TriggerConfig)
	if err != nil {
		return fmt.Errorf("failed to encode trigger config: %w", err)
	}

	operations, err := json.Marshal(flow.Operations)
	if err != nil {
		return fmt.Errorf("failed to encode operations: %w", err)
	}

	connections, err := json.Marshal(flow.Connections)
	if err != nil {
		return fmt.Errorf("failed to encode connections: %w", err)
	}

	canvasState, err := marshalJSONB(flow.CanvasState)
	if err != nil {
		return fmt.Errorf("failed to encode canvas state: %w", err)
	}

	query := `
		INSERT INTO flows (
			id, name, description, status, trigger_type, trigger_config,
			operations, connections, canvas_state, created_at, updated_at, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			operations = EXCLUDED.operations,
			connections = EXCLUDED.connections,
			canvas_state = EXCLUDED.canvas_state,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err = r.db.ExecContext(ctx, query,
		flow.ID, flow.Name, flow.Description, flow.Status, flow.TriggerType,
		triggerConfig, operations, connections, canvasState,
		flow.CreatedAt, flow.UpdatedAt, flow.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save flow %s: %w", flow.ID, err)
	}

	return nil
}

// Delete soft deletes the flow by setting deleted_at.
func (r *FlowRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE flows
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to delete flow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result for flow %s: %w", id, err)
	}

	if affected == 0 {
		return &persistence.FlowNotFoundError{FlowID: id}
	}

	return nil
}

// SaveCanonicalGraph replaces the flow's operation and connection documents
// without touching the canvas snapshot.
func (r *FlowRepository) SaveCanonicalGraph(ctx context.Context, flowID string, operations []*models.Operation, connections []*models.Connection) error {
	operationsDoc, err := json.Marshal(operations)
	if err != nil {
		return fmt.Errorf("failed to encode operations: %w", err)
	}

	connectionsDoc, err := json.Marshal(connections)
	if err != nil {
		return fmt.Errorf("failed to encode connections: %w", err)
	}

	query := `
		UPDATE flows
		SET operations = $2, connections = $3, updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, flowID, operationsDoc, connectionsDoc, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save graph for flow %s: %w", flowID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check graph save result for flow %s: %w", flowID, err)
	}

	if affected == 0 {
		return &persistence.FlowNotFoundError{FlowID: flowID}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlow(row rowScanner) (*models.Flow, error) {
	var (
		flow          models.Flow
		triggerConfig []byte
		operations    []byte
		connections   []byte
		canvasState   []byte
	)

	err := row.Scan(
		&flow.ID, &flow.Name, &flow.Description, &flow.Status, &flow.TriggerType,
		&triggerConfig, &operations, &connections, &canvasState,
		&flow.CreatedAt, &flow.UpdatedAt, &flow.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(triggerConfig) > 0 {
		if err := json.Unmarshal(triggerConfig, &flow.TriggerConfig); err != nil {
			return nil, fmt.Errorf("failed to decode trigger config: %w", err)
		}
	}

	if err := json.Unmarshal(operations, &flow.Operations); err != nil {
		return nil, fmt.Errorf("failed to decode operations: %w", err)
	}

	if err := json.Unmarshal(connections, &flow.Connections); err != nil {
		return nil, fmt.Errorf("failed to decode connections: %w", err)
	}

	if len(canvasState) > 0 {
		if err := json.Unmarshal(canvasState, &flow.CanvasState); err != nil {
			return nil, fmt.Errorf("failed to decode canvas state: %w", err)
		}
	}

	return &flow, nil
}

// marshalJSONB encodes v for a nullable JSONB column, mapping nil to SQL NULL.
func marshalJSONB(v any) (any, error) {
	switch value := v.(type) {
	case map[string]any:
		if value == nil {
			return nil, nil
		}
	case *models.CanvasState:
		if value == nil {
			return nil, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return data, nil
}
