// Package delay provides the pause operation for flow execution.
package delay

import (
	"context"
	"errors"
	"time"

	"github.com/calder/automa/pkg/datachain"
	"github.com/calder/automa/pkg/protocol"
)

// MaxDelayMs bounds a single delay node.
const MaxDelayMs = 300000

// Operation pauses the branch for a fixed duration.
type Operation struct {
	id       string
	duration time.Duration
}

// New creates a delay operation from interpolated options.
func New(id string, options map[string]any) (*Operation, error) {
	var ms int64

	switch v := options["duration_ms"].(type) {
	case float64:
		ms = int64(v)
	case int:
		ms = int64(v)
	case int64:
		ms = v
	default:
		return nil, errors.New("missing required field 'duration_ms'")
	}

	if ms <= 0 || ms > MaxDelayMs {
		return nil, errors.New("duration_ms must be between 1 and 300000")
	}

	return &Operation{id: id, duration: time.Duration(ms) * time.Millisecond}, nil
}

// Execute sleeps for the configured duration, honouring cancellation.
func (o *Operation) Execute(ctx context.Context, _ *datachain.Context) (*protocol.Result, error) {
	timer := time.NewTimer(o.duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return &protocol.Result{
			Output: map[string]any{"delayed_ms": o.duration.Milliseconds()},
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
