package condition_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/automa/pkg/operations/condition"
)

func evaluate(t *testing.T, left any, operator string, right any) (bool, error) {
	t.Helper()

	operation, err := condition.New("node-1", map[string]any{
		"left":     left,
		"operator": operator,
		"right":    right,
	})
	require.NoError(t, err)

	result, err := operation.Execute(context.Background(), nil)
	require.NotNil(t, result)

	output := result.Output.(map[string]any)

	return output["result"].(bool), err
}

func TestExecuteTrueCondition(t *testing.T) {
	verdict, err := evaluate(t, 10.0, "gt", 5.0)

	require.NoError(t, err)
	assert.True(t, verdict)
}

func TestExecuteFalseConditionReturnsError(t *testing.T) {
	verdict, err := evaluate(t, 3.0, "gt", 5.0)

	require.Error(t, err)
	assert.True(t, errors.Is(err, condition.ErrConditionNotMet))
	assert.False(t, verdict)
}

func TestExecuteOperators(t *testing.T) {
	tests := []struct {
		name     string
		left     any
		operator string
		right    any
		want     bool
	}{
		{"eq numbers", 5.0, "eq", 5.0, true},
		{"eq mixed numeric types", 5, "eq", 5.0, true},
		{"eq strings", "abc", "eq", "abc", true},
		{"eq mismatched kinds", "5", "eq", 5.0, false},
		{"ne", 5.0, "ne", 6.0, true},
		{"ne mismatched kinds", "5", "ne", 5.0, true},
		{"gte equal", 5.0, "gte", 5.0, true},
		{"lt strings", "apple", "lt", "banana", true},
		{"lte", 4.0, "lte", 5.0, true},
		{"contains string", "haystack", "contains", "hay", true},
		{"contains list", []any{1.0, 2.0}, "contains", 2.0, true},
		{"contains list miss", []any{1.0, 2.0}, "contains", 3.0, false},
		{"contains map key", map[string]any{"a": 1.0}, "contains", "a", true},
		{"exists", "anything", "exists", nil, true},
		{"exists nil", nil, "exists", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			verdict, err := evaluate(t, tc.left, tc.operator, tc.right)

			assert.Equal(t, tc.want, verdict)

			if tc.want {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, condition.ErrConditionNotMet)
			}
		})
	}
}

func TestNewRejectsUnknownOperator(t *testing.T) {
	_, err := condition.New("node-1", map[string]any{"operator": "matches"})
	require.Error(t, err)
}

func TestNewRequiresOperator(t *testing.T) {
	_, err := condition.New("node-1", map[string]any{"left": 1.0})
	require.Error(t, err)
}
