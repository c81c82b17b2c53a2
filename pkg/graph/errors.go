package graph

import "fmt"

// ValidationError describes a structurally invalid flow graph. It is
// raised before any node runs; the offending node or connection is always
// identified.
type ValidationError struct {
	NodeID       string // Offending operation id, if node-scoped
	ConnectionID string // Offending connection id, if edge-scoped
	Message      string
}

func (e *ValidationError) Error() string {
	switch {
	case e.NodeID != "" && e.ConnectionID != "":
		return fmt.Sprintf("invalid graph: %s (node %s, connection %s)", e.Message, e.NodeID, e.ConnectionID)
	case e.NodeID != "":
		return fmt.Sprintf("invalid graph: %s (node %s)", e.Message, e.NodeID)
	case e.ConnectionID != "":
		return fmt.Sprintf("invalid graph: %s (connection %s)", e.Message, e.ConnectionID)
	default:
		return "invalid graph: " + e.Message
	}
}
