package models

import "time"

// ExecutionStatus represents the lifecycle state of one flow run.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// OperationStatus is the per-node outcome recorded in an execution.
type OperationStatus string

const (
	OperationStatusSuccess OperationStatus = "success"
	OperationStatusFailure OperationStatus = "failure"
)

// OperationResult is one entry of an execution's audit trail, appended for
// every visited node in visit order.
type OperationResult struct {
	NodeID     string          `json:"node_id"`
	Status     OperationStatus `json:"status"`
	Output     any             `json:"output,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"duration_ms"`
	Logs       []string        `json:"logs,omitempty"`
}

// ExecutionRecord is the immutable audit artifact of one flow run. It
// references the flow by id and survives structural edits to it.
type ExecutionRecord struct {
	ID         string            `json:"id"`
	FlowID     string            `json:"flow_id"`
	Status     ExecutionStatus   `json:"status"`
	Trigger    map[string]any    `json:"trigger,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Results    []OperationResult `json:"results"`
}
