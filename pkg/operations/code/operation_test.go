package code_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/automa/pkg/datachain"
	"github.com/calder/automa/pkg/operations/code"
)

func newChain() *datachain.Context {
	return datachain.NewContext("flow-1", "exec-1", map[string]any{
		"name":  "jane",
		"count": 2.0,
	})
}

func run(t *testing.T, script string, options map[string]any) (*code.Operation, map[string]any) {
	t.Helper()

	if options == nil {
		options = map[string]any{}
	}

	options["script"] = script

	operation, err := code.New("node-1", options)
	require.NoError(t, err)

	return operation, options
}

func TestExecuteReturnsScriptValue(t *testing.T) {
	operation, _ := run(t, `return context.trigger.count * 2;`, nil)

	result, err := operation.Execute(context.Background(), newChain())

	require.NoError(t, err)
	assert.Equal(t, 4.0, result.Output)
}

func TestExecuteExposesContextObject(t *testing.T) {
	chain := newChain()
	chain.SetResult("prev", map[string]any{"total": 10.0})

	operation, _ := run(t, `
		return {
			name: context.trigger.name,
			last: context.last.total,
			prev: context.input.prev.total,
			flow: context.meta.flow_id,
		};
	`, nil)

	result, err := operation.Execute(context.Background(), chain)
	require.NoError(t, err)

	output, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "jane", output["name"])
	assert.Equal(t, 10.0, output["last"])
	assert.Equal(t, 10.0, output["prev"])
	assert.Equal(t, "flow-1", output["flow"])
}

func TestExecuteCapturesConsoleOutput(t *testing.T) {
	operation, _ := run(t, `
		console.log("starting", context.trigger.name);
		console.warn("low stock");
		return true;
	`, nil)

	result, err := operation.Execute(context.Background(), newChain())

	require.NoError(t, err)
	assert.Equal(t, []string{"starting jane", "[warn] low stock"}, result.Logs)
}

func TestExecuteScriptExceptionIsRuntimeError(t *testing.T) {
	operation, _ := run(t, `throw new Error("boom");`, nil)

	result, err := operation.Execute(context.Background(), newChain())

	require.Error(t, err)
	assert.True(t, code.IsRuntime(err))
	require.NotNil(t, result)
}

func TestExecuteLogsSurviveException(t *testing.T) {
	operation, _ := run(t, `
		console.log("before failure");
		throw new Error("boom");
	`, nil)

	result, err := operation.Execute(context.Background(), newChain())

	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []string{"before failure"}, result.Logs)
}

func TestExecuteInfiniteLoopTimesOut(t *testing.T) {
	operation, _ := run(t, `while (true) {}`, map[string]any{"timeout_ms": 100.0})

	started := time.Now()
	result, err := operation.Execute(context.Background(), newChain())
	elapsed := time.Since(started)

	require.Error(t, err)
	assert.True(t, code.IsTimeout(err))
	require.NotNil(t, result)

	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)

	// The engine stays usable after a runaway script.
	again, _ := run(t, `return 1;`, nil)
	followUp, err := again.Execute(context.Background(), newChain())
	require.NoError(t, err)
	assert.Equal(t, int64(1), followUp.Output)
}

func TestExecuteUtilsHelpers(t *testing.T) {
	operation, _ := run(t, `
		return {
			upper: utils.upper("abc"),
			joined: utils.join(["a", "b"], "-"),
			keys: utils.keys({b: 1, a: 2}),
			merged: utils.merge({a: 1}, {b: 2}),
			has: utils.contains("haystack", "hay"),
		};
	`, nil)

	result, err := operation.Execute(context.Background(), newChain())
	require.NoError(t, err)

	output, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ABC", output["upper"])
	assert.Equal(t, "a-b", output["joined"])
	assert.Equal(t, []string{"a", "b"}, output["keys"])
	assert.Equal(t, true, output["has"])
}

func TestExecuteFetchAgainstTestServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	operation, _ := run(t, `
		var res = fetch("`+server.URL+`");
		var body = JSON.parse(res.body);
		return {status: res.status, ok: body.ok};
	`, nil)

	result, err := operation.Execute(context.Background(), newChain())
	require.NoError(t, err)

	output, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(200), output["status"])
	assert.Equal(t, true, output["ok"])
}

func TestExecuteFetchRejectsNonHTTPSchemes(t *testing.T) {
	operation, _ := run(t, `
		try {
			fetch("file:///etc/passwd");
			return "no error";
		} catch (e) {
			return "rejected";
		}
	`, nil)

	result, err := operation.Execute(context.Background(), newChain())
	require.NoError(t, err)
	assert.Equal(t, "rejected", result.Output)
}

func TestNewRejectsMissingScript(t *testing.T) {
	_, err := code.New("node-1", map[string]any{})
	require.Error(t, err)
}

func TestNewRejectsOutOfRangeTimeout(t *testing.T) {
	_, err := code.New("node-1", map[string]any{
		"script":     "return 1;",
		"timeout_ms": float64(code.MaxTimeoutMs + 1),
	})
	require.Error(t, err)
}
