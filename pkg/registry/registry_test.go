package registry_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/automa/pkg/registry"
)

func newTestRegistry() *registry.Registry {
	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaultOperations()

	return reg
}

func TestRegisterDefaultOperations(t *testing.T) {
	reg := newTestRegistry()

	for _, operationType := range []string{"code", "bulk_update", "http_request", "transform", "condition", "log", "delay"} {
		assert.True(t, reg.Registered(operationType), operationType)
	}
}

func TestCreateUnknownOperationType(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.Create(context.Background(), "teleport", "node-1", nil)

	require.Error(t, err)
	assert.True(t, registry.IsUnknownOperation(err))
}

func TestCreateValidatesOptionsAgainstSchema(t *testing.T) {
	reg := newTestRegistry()

	// log requires a message
	_, err := reg.Create(context.Background(), "log", "node-1", map[string]any{})

	require.Error(t, err)
	assert.True(t, registry.IsInvalidOptions(err))
}

func TestCreateAppliesSchemaDefaults(t *testing.T) {
	reg := newTestRegistry()

	operation, err := reg.Create(context.Background(), "log", "node-1", map[string]any{
		"message": "hello",
	})

	require.NoError(t, err)
	require.NotNil(t, operation)
}

func TestApplyDefaultsFillsMissingFields(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"level":   map[string]any{"type": "string", "default": "info"},
			"message": map[string]any{"type": "string"},
		},
	}

	merged := registry.ApplyDefaults(schema, map[string]any{"message": "hi"})

	assert.Equal(t, "info", merged["level"])
	assert.Equal(t, "hi", merged["message"])
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"level": map[string]any{"type": "string", "default": "info"},
		},
	}

	merged := registry.ApplyDefaults(schema, map[string]any{"level": "error"})

	assert.Equal(t, "error", merged["level"])
}

func TestComponentsAreSortedByType(t *testing.T) {
	reg := newTestRegistry()

	components := reg.Components()
	require.NotEmpty(t, components)

	for i := 1; i < len(components); i++ {
		assert.Less(t, components[i-1].Type, components[i].Type)
	}
}
