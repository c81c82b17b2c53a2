package transform_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/automa/pkg/operations/transform"
)

func TestExecuteReturnsConfiguredValue(t *testing.T) {
	operation, err := transform.New("node-1", map[string]any{
		"value": map[string]any{
			"customer": "jane",
			"total":    42.5,
		},
	})
	require.NoError(t, err)

	result, err := operation.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"customer": "jane", "total": 42.5}, result.Output)
}

func TestExecutePassesThroughScalars(t *testing.T) {
	operation, err := transform.New("node-1", map[string]any{"value": "plain"})
	require.NoError(t, err)

	result, err := operation.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", result.Output)
}

func TestNewRequiresValue(t *testing.T) {
	_, err := transform.New("node-1", map[string]any{})
	require.Error(t, err)
}

func TestNewAcceptsExplicitNilValue(t *testing.T) {
	operation, err := transform.New("node-1", map[string]any{"value": nil})
	require.NoError(t, err)

	result, err := operation.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, result.Output)
}
