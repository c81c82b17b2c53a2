package compiler

import (
	"errors"

	"github.com/calder/automa/pkg/graph"
)

// IssueCode classifies a validation issue.
type IssueCode string

const (
	IssueEmptyFlow        IssueCode = "empty_flow"
	IssueInvalidGraph     IssueCode = "invalid_graph"
	IssueUnreachableNode  IssueCode = "unreachable_node"
	IssueUnknownOperation IssueCode = "unknown_operation"
)

// ValidationIssue is one structural problem found in a flow. NodeID and
// ConnectionID are set when the issue points at a specific element.
type ValidationIssue struct {
	Code         IssueCode `json:"code"`
	NodeID       string    `json:"node_id,omitempty"`
	ConnectionID string    `json:"connection_id,omitempty"`
	Message      string    `json:"message"`
}

func issueFromError(err error) ValidationIssue {
	var validationErr *graph.ValidationError
	if errors.As(err, &validationErr) {
		return ValidationIssue{
			Code:         IssueInvalidGraph,
			NodeID:       validationErr.NodeID,
			ConnectionID: validationErr.ConnectionID,
			Message:      validationErr.Message,
		}
	}

	return ValidationIssue{
		Code:    IssueInvalidGraph,
		Message: err.Error(),
	}
}
