package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/calder/automa/pkg/models"
	"github.com/calder/automa/pkg/persistence"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

// ExecutionRepository stores one JSON document per execution record under
// <root>/executions.
type ExecutionRepository struct {
	root string
	mu   sync.RWMutex
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) executionsDir() string {
	return filepath.Join(er.root, "executions")
}

func (er *ExecutionRepository) executionPath(id string) string {
	return filepath.Join(er.executionsDir(), id+".json")
}

// Create writes a new execution record document.
func (er *ExecutionRepository) Create(_ context.Context, record *models.ExecutionRecord) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	return er.writeRecord(record)
}

// GetByID returns the execution record with the given id.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.ExecutionRecord, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	return er.readRecord(id)
}

// AppendResult adds one operation result to the record's audit trail.
func (er *ExecutionRepository) AppendResult(_ context.Context, executionID string, result models.OperationResult) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	record, err := er.readRecord(executionID)
	if err != nil {
		return err
	}

	if record.FinishedAt != nil {
		return &persistence.ExecutionFinalizedError{ExecutionID: executionID}
	}

	record.Results = append(record.Results, result)

	return er.writeRecord(record)
}

// Finalize sets the record's terminal status and finish time. A record can
// be finalized exactly once; later calls fail with ErrExecutionFinalized.
func (er *ExecutionRepository) Finalize(_ context.Context, executionID string, status models.ExecutionStatus, finishedAt time.Time) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	record, err := er.readRecord(executionID)
	if err != nil {
		return err
	}

	if record.FinishedAt != nil {
		return &persistence.ExecutionFinalizedError{ExecutionID: executionID}
	}

	record.Status = status
	record.FinishedAt = &finishedAt

	return er.writeRecord(record)
}

// ListByFlow returns up to limit records for the flow, most recent first.
func (er *ExecutionRepository) ListByFlow(_ context.Context, flowID string, limit int) ([]*models.ExecutionRecord, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	jsonFiles, err := fs.Glob(os.DirFS(er.executionsDir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	records := make([]*models.ExecutionRecord, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		record, err := er.readRecord(file[:len(file)-len(".json")])
		if err != nil {
			return nil, err
		}

		if record.FlowID != flowID {
			continue
		}

		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].StartedAt.Equal(records[j].StartedAt) {
			return records[i].ID < records[j].ID
		}

		return records[i].StartedAt.After(records[j].StartedAt)
	})

	if len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

func (er *ExecutionRepository) readRecord(id string) (*models.ExecutionRecord, error) {
	data, err := os.ReadFile(er.executionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &persistence.ExecutionNotFoundError{ExecutionID: id}
		}

		return nil, fmt.Errorf("failed to read execution %s: %w", id, err)
	}

	var record models.ExecutionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode execution %s: %w", id, err)
	}

	return &record, nil
}

func (er *ExecutionRepository) writeRecord(record *models.ExecutionRecord) error {
	if err := os.MkdirAll(er.executionsDir(), dirPerm); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode execution %s: %w", record.ID, err)
	}

	if err := os.WriteFile(er.executionPath(record.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write execution %s: %w", record.ID, err)
	}

	return nil
}
