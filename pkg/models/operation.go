package models

// Position is the canvas placement of an operation. Layout only, it has no
// executable semantics.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Operation represents one executable step in a flow, typed by
// OperationType which is resolved through the operation registry.
type Operation struct {
	ID            string         `json:"id"             validate:"required"`
	OperationKey  string         `json:"operation_key"  validate:"required,lowercase"`
	OperationType string         `json:"operation_type" validate:"required"`
	Name          string         `json:"name"`
	Options       map[string]any `json:"options"`
	Position      Position       `json:"position"`
	SortOrder     int            `json:"sort_order"`
}

// ConnectionType tags a connection with the outcome it consumes.
type ConnectionType string

const (
	ConnectionTypeDefault ConnectionType = "default"
	ConnectionTypeSuccess ConnectionType = "success"
	ConnectionTypeFailure ConnectionType = "failure"
)

// Connection is a directed edge between two nodes of a flow. SourceID and
// TargetID reference Operation.ID or the literal trigger node id.
type Connection struct {
	ID             string         `json:"id"`
	SourceID       string         `json:"source_id"       validate:"required"`
	SourceHandle   string         `json:"source_handle,omitempty"`
	TargetID       string         `json:"target_id"       validate:"required"`
	TargetHandle   string         `json:"target_handle,omitempty"`
	ConnectionType ConnectionType `json:"connection_type" validate:"required,oneof=default success failure"`
	Label          string         `json:"label,omitempty"`
}

// Outcome classifies the result of one operation execution and selects
// which outgoing connections the executor follows.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)
