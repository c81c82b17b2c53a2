// Package graph provides the validated, executable representation of a
// flow: one implicit trigger node, typed operation nodes and directed
// connections between them. Flows are strict DAGs; cycles are rejected,
// never resolved.
package graph

import (
	"sort"

	"github.com/calder/automa/pkg/models"
)

// Graph is an immutable, validated view over a flow's operations and
// connections. Build one with New; a Graph that exists is structurally
// sound apart from possibly unreachable nodes, which Unreachable reports.
type Graph struct {
	operations []*models.Operation
	byID       map[string]*models.Operation
	outgoing   map[string][]*models.Connection
}

// New builds a graph from persisted operation and connection lists. It
// rejects duplicate operation keys, connections with endpoints that do not
// resolve to an operation or the trigger, and cycles.
func New(operations []*models.Operation, connections []*models.Connection) (*Graph, error) {
	g := &Graph{
		operations: operations,
		byID:       make(map[string]*models.Operation, len(operations)),
		outgoing:   make(map[string][]*models.Connection),
	}

	seenKeys := make(map[string]string, len(operations))

	for _, op := range operations {
		if op.ID == models.TriggerNodeID {
			return nil, &ValidationError{NodeID: op.ID, Message: "operation id collides with the trigger node"}
		}

		if _, dup := g.byID[op.ID]; dup {
			return nil, &ValidationError{NodeID: op.ID, Message: "duplicate operation id"}
		}

		if prev, dup := seenKeys[op.OperationKey]; dup {
			return nil, &ValidationError{
				NodeID:  op.ID,
				Message: "operation key " + op.OperationKey + " already used by node " + prev,
			}
		}

		seenKeys[op.OperationKey] = op.ID
		g.byID[op.ID] = op
	}

	for _, conn := range connections {
		if conn.TargetID == models.TriggerNodeID {
			return nil, &ValidationError{ConnectionID: conn.ID, Message: "trigger cannot be a connection target"}
		}

		if !g.nodeExists(conn.SourceID) {
			return nil, &ValidationError{ConnectionID: conn.ID, Message: "source node " + conn.SourceID + " does not exist"}
		}

		if !g.nodeExists(conn.TargetID) {
			return nil, &ValidationError{ConnectionID: conn.ID, Message: "target node " + conn.TargetID + " does not exist"}
		}

		g.outgoing[conn.SourceID] = append(g.outgoing[conn.SourceID], conn)
	}

	if cycleNode := g.findCycle(); cycleNode != "" {
		return nil, &ValidationError{NodeID: cycleNode, Message: "graph contains a cycle"}
	}

	return g, nil
}

func (g *Graph) nodeExists(id string) bool {
	if id == models.TriggerNodeID {
		return true
	}

	_, ok := g.byID[id]

	return ok
}

// Node returns the operation with the given id.
func (g *Graph) Node(id string) (*models.Operation, bool) {
	op, ok := g.byID[id]

	return op, ok
}

// Size returns the number of operation nodes, the trigger excluded.
func (g *Graph) Size() int {
	return len(g.byID)
}

// Operations returns the operation nodes ordered by sort_order, then by
// operation key for a deterministic tie-break.
func (g *Graph) Operations() []*models.Operation {
	ops := make([]*models.Operation, len(g.operations))
	copy(ops, g.operations)

	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].SortOrder != ops[j].SortOrder {
			return ops[i].SortOrder < ops[j].SortOrder
		}

		return ops[i].OperationKey < ops[j].OperationKey
	})

	return ops
}

// NextNodes returns the target node ids reachable from nodeID via
// connections matching the outcome. Success outcomes match success-typed
// connections and fall back to default-typed ones when no success edge
// exists. Failure outcomes match failure-typed connections only: a failing
// node without a failure edge terminates its branch.
func (g *Graph) NextNodes(nodeID string, outcome models.Outcome) []string {
	conns := g.outgoing[nodeID]

	want := models.ConnectionTypeSuccess
	if outcome == models.OutcomeFailure {
		want = models.ConnectionTypeFailure
	}

	targets := make([]string, 0, len(conns))

	for _, conn := range conns {
		if conn.ConnectionType == want {
			targets = append(targets, conn.TargetID)
		}
	}

	if len(targets) == 0 && outcome == models.OutcomeSuccess {
		for _, conn := range conns {
			if conn.ConnectionType == models.ConnectionTypeDefault {
				targets = append(targets, conn.TargetID)
			}
		}
	}

	return targets
}

// Unreachable returns the ids of operation nodes that no connection path
// from the trigger reaches. Such nodes are dead code: the compiler flags
// them, it never silently drops them.
func (g *Graph) Unreachable() []string {
	visited := map[string]bool{models.TriggerNodeID: true}
	queue := []string{models.TriggerNodeID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, conn := range g.outgoing[current] {
			if !visited[conn.TargetID] {
				visited[conn.TargetID] = true
				queue = append(queue, conn.TargetID)
			}
		}
	}

	unreachable := make([]string, 0)

	for _, op := range g.Operations() {
		if !visited[op.ID] {
			unreachable = append(unreachable, op.ID)
		}
	}

	return unreachable
}

// TopoSort returns all operation ids in a stable topological order from
// the trigger. Ties break on operation key so that two compilations of the
// same structure order nodes identically even when ids differ.
func (g *Graph) TopoSort() []string {
	indegree := make(map[string]int, len(g.byID))
	for id := range g.byID {
		indegree[id] = 0
	}

	for src, conns := range g.outgoing {
		if src == models.TriggerNodeID {
			continue
		}

		for _, conn := range conns {
			indegree[conn.TargetID]++
		}
	}

	ready := make([]string, 0, len(g.byID))
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(g.byID))

	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			return g.byID[ready[i]].OperationKey < g.byID[ready[j]].OperationKey
		})

		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		for _, conn := range g.outgoing[current] {
			indegree[conn.TargetID]--
			if indegree[conn.TargetID] == 0 {
				ready = append(ready, conn.TargetID)
			}
		}
	}

	return order
}

// findCycle returns the id of a node on a cycle, or "" when the graph is
// acyclic. Edges out of the trigger cannot form cycles since the trigger
// is never a target.
func (g *Graph) findCycle() string {
	indegree := make(map[string]int, len(g.byID))
	for id := range g.byID {
		indegree[id] = 0
	}

	for src, conns := range g.outgoing {
		if src == models.TriggerNodeID {
			continue
		}

		for _, conn := range conns {
			indegree[conn.TargetID]++
		}
	}

	queue := make([]string, 0, len(g.byID))
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		processed++

		for _, conn := range g.outgoing[current] {
			indegree[conn.TargetID]--
			if indegree[conn.TargetID] == 0 {
				queue = append(queue, conn.TargetID)
			}
		}
	}

	if processed == len(g.byID) {
		return ""
	}

	// Any node with remaining in-degree sits on or behind a cycle; report
	// the smallest key for determinism.
	var offender string

	for id, deg := range indegree {
		if deg > 0 {
			if offender == "" || g.byID[id].OperationKey < g.byID[offender].OperationKey {
				offender = id
			}
		}
	}

	return offender
}
