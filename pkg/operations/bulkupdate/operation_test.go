package bulkupdate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/automa/pkg/operations/bulkupdate"
)

func items(count int) []any {
	list := make([]any, 0, count)
	for i := 0; i < count; i++ {
		list = append(list, map[string]any{"id": i})
	}

	return list
}

// failOdds rejects items with an odd id, mutating the rest.
var failOdds = bulkupdate.MutatorFunc(func(_ context.Context, item any, update map[string]any) (any, error) {
	record := item.(map[string]any)
	if record["id"].(int)%2 == 1 {
		return nil, errors.New("record locked")
	}

	mutated := map[string]any{"id": record["id"]}
	for k, v := range update {
		mutated[k] = v
	}

	return mutated, nil
})

func TestExecuteContinuesPastFailures(t *testing.T) {
	operation, err := bulkupdate.New("node-1", map[string]any{
		"items":             items(5),
		"update":            map[string]any{"status": "archived"},
		"continue_on_error": true,
	}, failOdds)
	require.NoError(t, err)

	result, err := operation.Execute(context.Background(), nil)
	require.NoError(t, err)

	output := result.Output.(map[string]any)
	assert.Equal(t, 3, output["updated"])
	assert.Equal(t, 2, output["failed"])

	itemResults := output["results"].([]bulkupdate.ItemResult)
	require.Len(t, itemResults, 5)

	for i, item := range itemResults {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, i%2 == 0, item.OK)

		if item.OK {
			assert.Equal(t, "archived", item.Result.(map[string]any)["status"])
			assert.Empty(t, item.Error)
		} else {
			assert.Equal(t, "record locked", item.Error)
			assert.Nil(t, item.Result)
		}
	}
}

func TestExecuteAbortsOnFirstFailure(t *testing.T) {
	operation, err := bulkupdate.New("node-1", map[string]any{
		"items":             items(5),
		"continue_on_error": false,
	}, failOdds)
	require.NoError(t, err)

	result, err := operation.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 1 failed")

	// Partial results survive the abort.
	require.NotNil(t, result)
	output := result.Output.(map[string]any)
	assert.Equal(t, 1, output["updated"])
	assert.Equal(t, 1, output["failed"])
	assert.Len(t, output["results"].([]bulkupdate.ItemResult), 2)
}

func TestExecuteDefaultMutatorMerges(t *testing.T) {
	operation, err := bulkupdate.New("node-1", map[string]any{
		"items": []any{
			map[string]any{"id": 1.0, "status": "draft"},
			"not an object",
		},
		"update": map[string]any{"status": "active"},
	}, nil)
	require.NoError(t, err)

	result, err := operation.Execute(context.Background(), nil)
	require.NoError(t, err)

	output := result.Output.(map[string]any)
	assert.Equal(t, 1, output["updated"])
	assert.Equal(t, 1, output["failed"])

	itemResults := output["results"].([]bulkupdate.ItemResult)
	assert.Equal(t, map[string]any{"id": 1.0, "status": "active"}, itemResults[0].Result)
	assert.False(t, itemResults[1].OK)
	assert.Contains(t, itemResults[1].Error, "not an object")
}

func TestExecuteRejectsOversizedList(t *testing.T) {
	operation, err := bulkupdate.New("node-1", map[string]any{
		"items":     items(4),
		"max_items": 3.0,
	}, nil)
	require.NoError(t, err)

	_, err = operation.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bulkupdate.ErrTooManyItems))
}

func TestNewRequiresItems(t *testing.T) {
	_, err := bulkupdate.New("node-1", map[string]any{}, nil)
	require.Error(t, err)
}
