// Package httprequest provides the HTTP request operation for flow
// execution.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/calder/automa/pkg/datachain"
	"github.com/calder/automa/pkg/protocol"
)

const maxResponseBytes = 4 << 20

// Config defines the options for HTTP request operations.
type Config struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body,omitempty"`
	Timeout int               `json:"timeout"`
}

// Operation performs one HTTP request and exposes the response to the
// chain. A transport error or a status of 400 and above classifies as
// failure so failure edges can consume it.
type Operation struct {
	id     string
	config Config
}

// New creates an HTTP request operation from interpolated options.
func New(id string, options map[string]any) (*Operation, error) {
	config := Config{
		Method:  http.MethodGet,
		Headers: make(map[string]string),
		Timeout: 30,
	}

	rawURL, ok := options["url"].(string)
	if !ok || rawURL == "" {
		return nil, errors.New("missing required field 'url'")
	}

	config.URL = rawURL

	if method, ok := options["method"].(string); ok {
		config.Method = strings.ToUpper(method)
	}

	if headers, ok := options["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				config.Headers[k] = s
			}
		}
	}

	if body, ok := options["body"].(string); ok {
		config.Body = body
	}

	if timeout, ok := options["timeout"].(float64); ok {
		config.Timeout = int(timeout)
	}

	if config.Timeout <= 0 || config.Timeout > 300 {
		return nil, errors.New("timeout must be between 1 and 300 seconds")
	}

	return &Operation{id: id, config: config}, nil
}

// Execute performs the request. The output carries status, headers and the
// decoded body (JSON responses are parsed, everything else returned as a
// string).
func (o *Operation) Execute(ctx context.Context, _ *datachain.Context) (*protocol.Result, error) {
	client := &http.Client{Timeout: time.Duration(o.config.Timeout) * time.Second}

	var body io.Reader
	if o.config.Body != "" {
		body = strings.NewReader(o.config.Body)
	}

	req, err := http.NewRequestWithContext(ctx, o.config.Method, o.config.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, v := range o.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}

	output := map[string]any{
		"status":  resp.StatusCode,
		"headers": headers,
		"body":    decodeBody(resp.Header.Get("Content-Type"), raw),
	}

	result := &protocol.Result{Output: output}

	if resp.StatusCode >= http.StatusBadRequest {
		return result, fmt.Errorf("request returned status %d", resp.StatusCode)
	}

	return result, nil
}

func decodeBody(contentType string, raw []byte) any {
	if strings.Contains(contentType, "application/json") {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			return decoded
		}
	}

	return string(raw)
}
