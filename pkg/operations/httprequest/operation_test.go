package httprequest_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/automa/pkg/operations/httprequest"
)

func TestExecuteDecodesJSONResponse(t *testing.T) {
	var gotMethod, gotHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Token")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "name": "jane"})
	}))
	defer server.Close()

	operation, err := httprequest.New("node-1", map[string]any{
		"url":     server.URL,
		"headers": map[string]any{"X-Token": "secret"},
	})
	require.NoError(t, err)

	result, err := operation.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "secret", gotHeader)

	output := result.Output.(map[string]any)
	assert.Equal(t, http.StatusOK, output["status"])

	body := output["body"].(map[string]any)
	assert.Equal(t, 7.0, body["id"])
	assert.Equal(t, "jane", body["name"])
}

func TestExecutePostSendsBody(t *testing.T) {
	var received string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		received = string(raw)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	operation, err := httprequest.New("node-1", map[string]any{
		"url":    server.URL,
		"method": "post",
		"body":   `{"name":"jane"}`,
	})
	require.NoError(t, err)

	result, err := operation.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, `{"name":"jane"}`, received)
	assert.Equal(t, http.StatusCreated, result.Output.(map[string]any)["status"])
}

func TestExecuteErrorStatusKeepsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer server.Close()

	operation, err := httprequest.New("node-1", map[string]any{"url": server.URL})
	require.NoError(t, err)

	result, err := operation.Execute(context.Background(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")

	// The response is still available for failure-edge consumers.
	require.NotNil(t, result)
	output := result.Output.(map[string]any)
	assert.Equal(t, http.StatusNotFound, output["status"])
	assert.Contains(t, output["body"].(string), "missing")
}

func TestExecuteNonJSONBodyIsString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hello"))
	}))
	defer server.Close()

	operation, err := httprequest.New("node-1", map[string]any{"url": server.URL})
	require.NoError(t, err)

	result, err := operation.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Output.(map[string]any)["body"])
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := httprequest.New("node-1", map[string]any{})
	require.Error(t, err)

	_, err = httprequest.New("node-1", map[string]any{"url": "http://example.com", "timeout": 0.0})
	require.Error(t, err)

	_, err = httprequest.New("node-1", map[string]any{"url": "http://example.com", "timeout": 301.0})
	require.Error(t, err)
}
