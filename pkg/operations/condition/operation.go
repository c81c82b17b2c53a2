// Package condition provides the comparison operation. A false condition
// classifies the node as failed so failure-typed connections route the
// branch; a flow author models if/else with a success edge and a failure
// edge out of the same node.
package condition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calder/automa/pkg/datachain"
	"github.com/calder/automa/pkg/protocol"
)

// ErrConditionNotMet marks a condition that evaluated to false.
var ErrConditionNotMet = errors.New("condition not met")

var operators = map[string]bool{
	"eq": true, "ne": true,
	"gt": true, "gte": true,
	"lt": true, "lte": true,
	"contains": true, "exists": true,
}

// Operation compares two interpolated values.
type Operation struct {
	id       string
	left     any
	operator string
	right    any
}

// New creates a condition operation from interpolated options.
func New(id string, options map[string]any) (*Operation, error) {
	operator, ok := options["operator"].(string)
	if !ok {
		return nil, errors.New("missing required field 'operator'")
	}

	if !operators[operator] {
		return nil, fmt.Errorf("unsupported operator %q", operator)
	}

	return &Operation{
		id:       id,
		left:     options["left"],
		operator: operator,
		right:    options["right"],
	}, nil
}

// Execute evaluates the comparison. The output reports the verdict either
// way; the error return is what routes the failure edge.
func (o *Operation) Execute(_ context.Context, _ *datachain.Context) (*protocol.Result, error) {
	verdict := o.evaluate()

	result := &protocol.Result{
		Output: map[string]any{
			"result":   verdict,
			"left":     o.left,
			"operator": o.operator,
			"right":    o.right,
		},
	}

	if !verdict {
		return result, ErrConditionNotMet
	}

	return result, nil
}

func (o *Operation) evaluate() bool {
	switch o.operator {
	case "exists":
		return o.left != nil
	case "eq":
		return sameKind(o.left, o.right) && compare(o.left, o.right) == 0
	case "ne":
		return !sameKind(o.left, o.right) || compare(o.left, o.right) != 0
	case "gt":
		return sameKind(o.left, o.right) && compare(o.left, o.right) > 0
	case "gte":
		return sameKind(o.left, o.right) && compare(o.left, o.right) >= 0
	case "lt":
		return sameKind(o.left, o.right) && compare(o.left, o.right) < 0
	case "lte":
		return sameKind(o.left, o.right) && compare(o.left, o.right) <= 0
	case "contains":
		return contains(o.left, o.right)
	default:
		return false
	}
}

// sameKind reports whether the two values compare meaningfully: both
// numbers, both strings or both booleans.
func sameKind(a, b any) bool {
	if _, ok := asNumber(a); ok {
		_, ok := asNumber(b)

		return ok
	}

	if _, ok := a.(string); ok {
		_, ok := b.(string)

		return ok
	}

	if _, ok := a.(bool); ok {
		_, ok := b.(bool)

		return ok
	}

	return false
}

func compare(a, b any) int {
	if na, ok := asNumber(a); ok {
		if nb, ok := asNumber(b); ok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			default:
				return 0
			}
		}
	}

	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb)
		}
	}

	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			if ba == bb {
				return 0
			}

			return 1
		}
	}

	return 1
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func contains(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		s, ok := needle.(string)

		return ok && strings.Contains(h, s)
	case []any:
		for _, item := range h {
			if sameKind(item, needle) && compare(item, needle) == 0 {
				return true
			}
		}

		return false
	case map[string]any:
		key, ok := needle.(string)
		if !ok {
			return false
		}

		_, present := h[key]

		return present
	default:
		return false
	}
}
