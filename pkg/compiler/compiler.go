// Package compiler reconciles the two persisted representations of a flow.
// A flow edited on the canvas may exist only as a CanvasState snapshot; the
// compiler derives the canonical operation/connection lists from it, orders
// them topologically, and persists them so execution never reads the canvas.
package compiler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/calder/automa/pkg/graph"
	"github.com/calder/automa/pkg/models"
	"github.com/calder/automa/pkg/persistence"
)

// Compiler builds executable graphs from persisted flows.
type Compiler struct {
	flows  persistence.FlowRepository
	logger *slog.Logger
}

// NewCompiler creates a compiler over the given flow repository.
func NewCompiler(flows persistence.FlowRepository, logger *slog.Logger) *Compiler {
	return &Compiler{
		flows:  flows,
		logger: logger.With("module", "compiler"),
	}
}

// Compile returns the flow's executable graph. When the flow only carries a
// canvas snapshot the canonical lists are derived from it and saved back, so
// later compilations skip the derivation. Operations and connections, when
// present, are always authoritative over the canvas.
func (c *Compiler) Compile(ctx context.Context, flow *models.Flow) (*graph.Graph, error) {
	operations := flow.Operations
	connections := flow.Connections

	if len(operations) == 0 && flow.CanvasState != nil && len(flow.CanvasState.Nodes) > 0 {
		derived, derivedConns, err := deriveFromCanvas(flow.CanvasState)
		if err != nil {
			return nil, err
		}

		operations = derived
		connections = derivedConns

		g, err := graph.New(operations, connections)
		if err != nil {
			return nil, err
		}

		assignSortOrder(g, operations)

		if err := c.flows.SaveCanonicalGraph(ctx, flow.ID, operations, connections); err != nil {
			return nil, fmt.Errorf("failed to persist compiled graph for flow %s: %w", flow.ID, err)
		}

		c.logger.InfoContext(ctx, "Canvas compiled to canonical graph",
			"flow_id", flow.ID,
			"operations", len(operations),
			"connections", len(connections),
		)

		flow.Operations = operations
		flow.Connections = connections

		return g, nil
	}

	return graph.New(operations, connections)
}

// Validate checks the flow's structure without persisting anything and
// returns every issue found. An empty slice means the flow is executable.
func (c *Compiler) Validate(_ context.Context, flow *models.Flow) []ValidationIssue {
	operations := flow.Operations
	connections := flow.Connections

	if len(operations) == 0 && flow.CanvasState != nil && len(flow.CanvasState.Nodes) > 0 {
		derived, derivedConns, err := deriveFromCanvas(flow.CanvasState)
		if err != nil {
			return []ValidationIssue{issueFromError(err)}
		}

		operations = derived
		connections = derivedConns
	}

	if len(operations) == 0 {
		return []ValidationIssue{{
			Code:    IssueEmptyFlow,
			Message: "flow has no operations",
		}}
	}

	g, err := graph.New(operations, connections)
	if err != nil {
		return []ValidationIssue{issueFromError(err)}
	}

	issues := make([]ValidationIssue, 0)

	for _, nodeID := range g.Unreachable() {
		issues = append(issues, ValidationIssue{
			Code:    IssueUnreachableNode,
			NodeID:  nodeID,
			Message: fmt.Sprintf("node %q is not reachable from the trigger", nodeID),
		})
	}

	return issues
}

// assignSortOrder stamps each operation with its position in the stable
// topological order.
func assignSortOrder(g *graph.Graph, operations []*models.Operation) {
	order := make(map[string]int, len(operations))
	for i, nodeID := range g.TopoSort() {
		order[nodeID] = i
	}

	for _, op := range operations {
		if idx, ok := order[op.ID]; ok {
			op.SortOrder = idx
		}
	}
}

// deriveFromCanvas maps the visual node/edge shape into canonical records.
// The canvas trigger node collapses into the implicit trigger id; edge
// source handles named success/failure select the connection type.
func deriveFromCanvas(canvas *models.CanvasState) ([]*models.Operation, []*models.Connection, error) {
	operations := make([]*models.Operation, 0, len(canvas.Nodes))
	canvasToNode := make(map[string]string, len(canvas.Nodes))

	for i := range canvas.Nodes {
		node := &canvas.Nodes[i]

		if node.Type == "trigger" {
			if _, dup := canvasToNode[node.ID]; dup {
				return nil, nil, &graph.ValidationError{
					NodeID:  node.ID,
					Message: "duplicate canvas node id",
				}
			}

			canvasToNode[node.ID] = models.TriggerNodeID

			continue
		}

		op, err := operationFromCanvasNode(node)
		if err != nil {
			return nil, nil, err
		}

		if _, dup := canvasToNode[node.ID]; dup {
			return nil, nil, &graph.ValidationError{
				NodeID:  node.ID,
				Message: "duplicate canvas node id",
			}
		}

		canvasToNode[node.ID] = op.ID
		operations = append(operations, op)
	}

	connections := make([]*models.Connection, 0, len(canvas.Edges))

	for i := range canvas.Edges {
		edge := &canvas.Edges[i]

		sourceID, ok := canvasToNode[edge.Source]
		if !ok {
			return nil, nil, &graph.ValidationError{
				ConnectionID: edge.ID,
				Message:      fmt.Sprintf("edge source %q is not a canvas node", edge.Source),
			}
		}

		targetID, ok := canvasToNode[edge.Target]
		if !ok {
			return nil, nil, &graph.ValidationError{
				ConnectionID: edge.ID,
				Message:      fmt.Sprintf("edge target %q is not a canvas node", edge.Target),
			}
		}

		connections = append(connections, &models.Connection{
			ID:             edge.ID,
			SourceID:       sourceID,
			SourceHandle:   edge.SourceHandle,
			TargetID:       targetID,
			TargetHandle:   edge.TargetHandle,
			ConnectionType: connectionTypeForHandle(edge.SourceHandle),
			Label:          edge.Label,
		})
	}

	return operations, connections, nil
}

// operationFromCanvasNode builds an Operation from a non-trigger canvas
// node. The node's Data carries operation_key, operation_type and options.
func operationFromCanvasNode(node *models.CanvasNode) (*models.Operation, error) {
	operationKey, _ := node.Data["operation_key"].(string)
	if operationKey == "" {
		return nil, &graph.ValidationError{
			NodeID:  node.ID,
			Message: "canvas node is missing operation_key",
		}
	}

	operationType, _ := node.Data["operation_type"].(string)
	if operationType == "" {
		operationType = node.Type
	}

	if operationType == "" {
		return nil, &graph.ValidationError{
			NodeID:  node.ID,
			Message: "canvas node is missing operation_type",
		}
	}

	options, _ := node.Data["options"].(map[string]any)

	return &models.Operation{
		ID:            uuid.New().String(),
		OperationKey:  operationKey,
		OperationType: operationType,
		Name:          node.Label,
		Options:       options,
		Position:      node.Position,
	}, nil
}

func connectionTypeForHandle(sourceHandle string) models.ConnectionType {
	switch sourceHandle {
	case "success":
		return models.ConnectionTypeSuccess
	case "failure":
		return models.ConnectionTypeFailure
	default:
		return models.ConnectionTypeDefault
	}
}
