// Package persistence provides the data storage abstraction for flows and
// execution records.
package persistence

import (
	"context"
	"time"

	"github.com/calder/automa/pkg/models"
)

// Persistence bundles the repositories one storage backend provides.
type Persistence interface {
	FlowRepository() FlowRepository
	ExecutionRepository() ExecutionRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListFlowsOptions filters and pages flow listings.
type ListFlowsOptions struct {
	Limit  int
	Offset int
	Status *models.FlowStatus
}

// FlowRepository stores flow definitions. A flow owns its operations,
// connections and canvas state; they are saved and deleted together.
type FlowRepository interface {
	List(ctx context.Context, opts ListFlowsOptions) ([]*models.Flow, error)
	GetByID(ctx context.Context, id string) (*models.Flow, error)
	Save(ctx context.Context, flow *models.Flow) error
	Delete(ctx context.Context, id string) error

	// SaveCanonicalGraph persists the compiler's derived operation and
	// connection lists without touching the canvas snapshot.
	SaveCanonicalGraph(ctx context.Context, flowID string, operations []*models.Operation, connections []*models.Connection) error
}

// ExecutionRepository stores execution records. Results are append-only
// and a record can be finalized exactly once.
type ExecutionRepository interface {
	Create(ctx context.Context, record *models.ExecutionRecord) error
	GetByID(ctx context.Context, id string) (*models.ExecutionRecord, error)
	AppendResult(ctx context.Context, executionID string, result models.OperationResult) error
	Finalize(ctx context.Context, executionID string, status models.ExecutionStatus, finishedAt time.Time) error
	ListByFlow(ctx context.Context, flowID string, limit int) ([]*models.ExecutionRecord, error)
}
