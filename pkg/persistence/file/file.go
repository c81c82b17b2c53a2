// Package file provides a file-system backed persistence implementation.
// Flows and execution records are stored as JSON documents under the root
// directory, one file per entity.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/calder/automa/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory tree.
type Persistence struct {
	root          string
	flowRepo      *FlowRepository
	executionRepo *ExecutionRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
// A "file://" prefix on root is accepted and stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:          cleanRoot,
		flowRepo:      NewFlowRepository(cleanRoot),
		executionRepo: NewExecutionRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. There is nothing to release for
// file-based persistence.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// FlowRepository returns the flow repository backed by the file system.
func (fp *Persistence) FlowRepository() persistence.FlowRepository {
	return fp.flowRepo
}

// ExecutionRepository returns the execution repository backed by the file system.
func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}
