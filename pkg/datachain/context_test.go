package datachain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/automa/pkg/datachain"
)

func newChain() *datachain.Context {
	return datachain.NewContext("flow-1", "exec-1", map[string]any{
		"order_id": "ord-42",
		"customer": map[string]any{"email": "jane@example.com"},
		"items":    []any{map[string]any{"sku": "A-1"}, map[string]any{"sku": "B-2"}},
	})
}

func TestSetResultUpdatesLastAndInput(t *testing.T) {
	chain := newChain()

	chain.SetResult("fetch", map[string]any{"status": "ok"})
	chain.SetResult("score", 42.0)

	assert.Equal(t, 42.0, chain.Last())

	fetched, ok := chain.Input("fetch")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"status": "ok"}, fetched)

	assert.Equal(t, []string{"fetch", "score"}, chain.InputKeys())
}

func TestInputKeysKeepInsertionOrder(t *testing.T) {
	chain := newChain()

	chain.SetResult("c", 1)
	chain.SetResult("a", 2)
	chain.SetResult("b", 3)

	assert.Equal(t, []string{"c", "a", "b"}, chain.InputKeys())
}

func TestSetResultOverwriteKeepsSingleKey(t *testing.T) {
	chain := newChain()

	chain.SetResult("step", 1)
	chain.SetResult("step", 2)

	value, ok := chain.Input("step")
	require.True(t, ok)
	assert.Equal(t, 2, value)
	assert.Equal(t, []string{"step"}, chain.InputKeys())
}

func TestMetaExposesIdentity(t *testing.T) {
	chain := newChain()

	meta := chain.Meta()

	assert.Equal(t, "flow-1", meta["flow_id"])
	assert.Equal(t, "exec-1", meta["execution_id"])
	assert.Contains(t, meta, "timestamp")
}

func TestResolveTriggerPath(t *testing.T) {
	chain := newChain()

	value, ok := chain.Resolve("$trigger.customer.email")
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", value)
}

func TestResolveSliceIndex(t *testing.T) {
	chain := newChain()

	value, ok := chain.Resolve("$trigger.items.1.sku")
	require.True(t, ok)
	assert.Equal(t, "B-2", value)
}

func TestResolveMissingPath(t *testing.T) {
	chain := newChain()

	_, ok := chain.Resolve("$trigger.nope.deeper")
	assert.False(t, ok)
}

func TestInterpolateWholeStringKeepsType(t *testing.T) {
	chain := newChain()
	chain.SetResult("count", 3.0)

	resolved := chain.Interpolate("$last")
	assert.Equal(t, 3.0, resolved)
}

func TestInterpolateEmbeddedStringifies(t *testing.T) {
	chain := newChain()

	resolved := chain.Interpolate("order=$trigger.order_id done")
	assert.Equal(t, "order=ord-42 done", resolved)
}

func TestInterpolateUnresolvedWholeStringIsNil(t *testing.T) {
	chain := newChain()

	assert.Nil(t, chain.Interpolate("$last.missing"))
}

func TestInterpolateUnresolvedEmbeddedIsEmpty(t *testing.T) {
	chain := newChain()

	resolved := chain.Interpolate("value=[$input.absent]")
	assert.Equal(t, "value=[]", resolved)
}

func TestInterpolateLeavesPlainStringsAlone(t *testing.T) {
	chain := newChain()

	assert.Equal(t, "price in $USD", chain.Interpolate("price in $USD"))
}

func TestInterpolateOptionsWalksNestedStructures(t *testing.T) {
	chain := newChain()
	chain.SetResult("lookup", map[string]any{"region": "eu"})

	options := chain.InterpolateOptions(map[string]any{
		"url": "https://api.example.com/orders/$trigger.order_id",
		"meta": map[string]any{
			"region": "$input.lookup.region",
		},
		"tags":  []any{"$trigger.order_id", 7},
		"limit": 10,
	})

	assert.Equal(t, "https://api.example.com/orders/ord-42", options["url"])
	assert.Equal(t, map[string]any{"region": "eu"}, options["meta"])
	assert.Equal(t, []any{"ord-42", 7}, options["tags"])
	assert.Equal(t, 10, options["limit"])
}
