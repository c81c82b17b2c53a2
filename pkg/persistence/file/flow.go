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

	"github.com/calder/automa/pkg/models"
	"github.com/calder/automa/pkg/persistence"
)

const dirPerm = 0o755

// FlowRepository stores one JSON document per flow under <root>/flows.
type FlowRepository struct {
	root string
	mu   sync.RWMutex
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(root string) *FlowRepository {
	return &FlowRepository{root: root}
}

func (fr *FlowRepository) flowsDir() string {
	return filepath.Join(fr.root, "flows")
}

func (fr *FlowRepository) flowPath(id string) string {
	return filepath.Join(fr.flowsDir(), id+".json")
}

// List returns flows filtered and paginated in memory.
func (fr *FlowRepository) List(_ context.Context, opts persistence.ListFlowsOptions) ([]*models.Flow, error) {
	fr.mu.RLock()
	defer fr.mu.RUnlock()

	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	jsonFiles, err := fs.Glob(os.DirFS(fr.flowsDir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list flow files: %w", err)
	}

	flows := make([]*models.Flow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		flow, err := fr.readFlow(file[:len(file)-len(".json")])
		if err != nil {
			return nil, err
		}

		if flow.DeletedAt != nil {
			continue
		}

		if opts.Status != nil && flow.Status != *opts.Status {
			continue
		}

		flows = append(flows, flow)
	}

	sort.Slice(flows, func(i, j int) bool {
		if flows[i].CreatedAt.Equal(flows[j].CreatedAt) {
			return flows[i].ID < flows[j].ID
		}

		return flows[i].CreatedAt.After(flows[j].CreatedAt)
	})

	if opts.Offset >= len(flows) {
		return []*models.Flow{}, nil
	}

	end := opts.Offset + opts.Limit
	if end > len(flows) {
		end = len(flows)
	}

	return flows[opts.Offset:end], nil
}

// GetByID returns the flow with the given id.
func (fr *FlowRepository) GetByID(_ context.Context, id string) (*models.Flow, error) {
	fr.mu.RLock()
	defer fr.mu.RUnlock()

	flow, err := fr.readFlow(id)
	if err != nil {
		return nil, err
	}

	if flow.DeletedAt != nil {
		return nil, &persistence.FlowNotFoundError{FlowID: id}
	}

	return flow, nil
}

// Save writes the flow document, replacing any previous version.
func (fr *FlowRepository) Save(_ context.Context, flow *models.Flow) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	return fr.writeFlow(flow)
}

// Delete marks the flow as deleted. The document is kept so execution
// history referencing the flow id stays resolvable.
func (fr *FlowRepository) Delete(_ context.Context, id string) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	flow, err := fr.readFlow(id)
	if err != nil {
		return err
	}

	if flow.DeletedAt != nil {
		return &persistence.FlowNotFoundError{FlowID: id}
	}

	now := nowUTC()
	flow.DeletedAt = &now
	flow.UpdatedAt = now

	return fr.writeFlow(flow)
}

// SaveCanonicalGraph replaces the flow's operations and connections with the
// compiled lists, leaving the canvas snapshot untouched.
func (fr *FlowRepository) SaveCanonicalGraph(_ context.Context, flowID string, operations []*models.Operation, connections []*models.Connection) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	flow, err := fr.readFlow(flowID)
	if err != nil {
		return err
	}

	if flow.DeletedAt != nil {
		return &persistence.FlowNotFoundError{FlowID: flowID}
	}

	flow.Operations = operations
	flow.Connections = connections
	flow.UpdatedAt = nowUTC()

	return fr.writeFlow(flow)
}

func (fr *FlowRepository) readFlow(id string) (*models.Flow, error) {
	data, err := os.ReadFile(fr.flowPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &persistence.FlowNotFoundError{FlowID: id}
		}

		return nil, fmt.Errorf("failed to read flow %s: %w", id, err)
	}

	var flow models.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("failed to decode flow %s: %w", id, err)
	}

	return &flow, nil
}

func (fr *FlowRepository) writeFlow(flow *models.Flow) error {
	if err := os.MkdirAll(fr.flowsDir(), dirPerm); err != nil {
		return fmt.Errorf("failed to create flows directory: %w", err)
	}

	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode flow %s: %w", flow.ID, err)
	}

	if err := os.WriteFile(fr.flowPath(flow.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write flow %s: %w", flow.ID, err)
	}

	return nil
}
