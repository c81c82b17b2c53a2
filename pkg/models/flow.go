// Package models defines the core domain models for graph-based flow automation.
package models

import "time"

// FlowStatus represents the lifecycle state of a flow.
type FlowStatus string

const (
	FlowStatusDraft    FlowStatus = "draft"    // Editable, not triggerable
	FlowStatusActive   FlowStatus = "active"   // Triggerable, structurally frozen
	FlowStatusInactive FlowStatus = "inactive" // Editable, not triggerable
)

// TriggerType identifies what kind of event starts a flow.
type TriggerType string

const (
	TriggerTypeEvent       TriggerType = "event"
	TriggerTypeSchedule    TriggerType = "schedule"
	TriggerTypeWebhook     TriggerType = "webhook"
	TriggerTypeManual      TriggerType = "manual"
	TriggerTypeAnotherFlow TriggerType = "another_flow"
)

// TriggerNodeID is the id of the implicit trigger node every flow has.
// It never appears in Flow.Operations and can never be deleted.
const TriggerNodeID = "trigger"

// Flow represents a persisted automation definition: a trigger plus a
// directed graph of typed operations.
type Flow struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"           validate:"required,min=3"`
	Description   string         `json:"description"`
	Status        FlowStatus     `json:"status"         validate:"required,oneof=draft active inactive"`
	TriggerType   TriggerType    `json:"trigger_type"   validate:"required,oneof=event schedule webhook manual another_flow"`
	TriggerConfig map[string]any `json:"trigger_config,omitempty"`
	Operations    []*Operation   `json:"operations"`
	Connections   []*Connection  `json:"connections"`
	CanvasState   *CanvasState   `json:"canvas_state,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     *time.Time     `json:"deleted_at,omitempty"`
}

// Editable reports whether the flow may be structurally modified.
// Active flows are frozen until deactivated.
func (f *Flow) Editable() bool {
	return f.Status == FlowStatusDraft || f.Status == FlowStatusInactive
}

// Triggerable reports whether the flow may be executed.
func (f *Flow) Triggerable() bool {
	return f.Status == FlowStatusActive
}

// OperationByID returns the operation with the given id, if present.
func (f *Flow) OperationByID(id string) (*Operation, bool) {
	for _, op := range f.Operations {
		if op.ID == id {
			return op, true
		}
	}

	return nil, false
}
