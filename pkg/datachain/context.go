// Package datachain implements the per-execution environment every
// operation sees: the original trigger payload, the most recent output,
// all prior outputs keyed by operation key, and execution metadata. It
// also provides the interpolation resolver that substitutes path
// references inside operation options.
package datachain

import (
	"sync"
	"time"
)

// Context is the data chain of one execution. The trigger payload is
// immutable for the run; outputs accumulate in insertion order as the
// executor visits nodes. Reads and writes are safe for concurrent branch
// evaluation.
type Context struct {
	flowID      string
	executionID string
	startedAt   time.Time
	trigger     map[string]any

	mu    sync.RWMutex
	last  any
	keys  []string
	input map[string]any
}

// NewContext creates the data chain for one run, seeded with the trigger
// payload.
func NewContext(flowID, executionID string, payload map[string]any) *Context {
	if payload == nil {
		payload = make(map[string]any)
	}

	return &Context{
		flowID:      flowID,
		executionID: executionID,
		startedAt:   time.Now().UTC(),
		trigger:     payload,
		input:       make(map[string]any),
	}
}

// FlowID returns the id of the flow being executed.
func (c *Context) FlowID() string { return c.flowID }

// ExecutionID returns the id of the execution record for this run.
func (c *Context) ExecutionID() string { return c.executionID }

// Trigger returns the original trigger payload.
func (c *Context) Trigger() map[string]any { return c.trigger }

// Last returns the most recent operation output.
func (c *Context) Last() any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.last
}

// Input returns the recorded output of a previously executed operation.
func (c *Context) Input(operationKey string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.input[operationKey]

	return value, ok
}

// InputKeys returns the executed operation keys in insertion order.
func (c *Context) InputKeys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, len(c.keys))
	copy(keys, c.keys)

	return keys
}

// SetResult stores an operation's output under its key and makes it the
// new $last value. Re-recording a key keeps its original insertion slot.
func (c *Context) SetResult(operationKey string, output any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.input[operationKey]; !exists {
		c.keys = append(c.keys, operationKey)
	}

	c.input[operationKey] = output
	c.last = output
}

// Meta returns the $context view: flow id, execution id and run timestamp.
func (c *Context) Meta() map[string]any {
	return map[string]any{
		"flow_id":      c.flowID,
		"execution_id": c.executionID,
		"timestamp":    c.startedAt.Format(time.RFC3339),
	}
}

// Snapshot returns the full environment as exposed to operations and to
// the sandboxed code runner.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	input := make(map[string]any, len(c.input))
	for k, v := range c.input {
		input[k] = v
	}

	return map[string]any{
		"trigger": c.trigger,
		"last":    c.last,
		"input":   input,
		"context": c.Meta(),
	}
}
