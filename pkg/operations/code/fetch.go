package code

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dop251/goja"
)

const (
	fetchTimeout      = 10 * time.Second
	maxFetchBodyBytes = 1 << 20 // 1 MiB response cap
)

var allowedFetchMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// fetcher is the constrained HTTP capability exposed to sandboxed code:
// http/https only, a fixed method allow-list, a bounded response body and
// its own timeout independent of the script's.
type fetcher struct {
	client *http.Client
}

func newFetcher() *fetcher {
	return &fetcher{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// jsFunc returns the fetch(url, options?) function. Options may carry
// method, headers and body. Errors surface as JavaScript exceptions inside
// the sandbox, so a script can catch and handle them.
func (f *fetcher) jsFunc(vm *goja.Runtime) func(rawURL string, options map[string]any) (map[string]any, error) {
	return func(rawURL string, options map[string]any) (map[string]any, error) {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("fetch: invalid url: %w", err)
		}

		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return nil, fmt.Errorf("fetch: scheme %q not allowed", parsed.Scheme)
		}

		method := http.MethodGet

		var body io.Reader

		headers := make(map[string]string)

		if options != nil {
			if m, ok := options["method"].(string); ok {
				method = strings.ToUpper(m)
			}

			if rawHeaders, ok := options["headers"].(map[string]any); ok {
				for k, v := range rawHeaders {
					if s, ok := v.(string); ok {
						headers[k] = s
					}
				}
			}

			if rawBody, ok := options["body"].(string); ok {
				body = strings.NewReader(rawBody)
			}
		}

		if !allowedFetchMethods[method] {
			return nil, fmt.Errorf("fetch: method %q not allowed", method)
		}

		req, err := http.NewRequest(method, rawURL, body)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}

		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}

		defer func() {
			_ = resp.Body.Close()
		}()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("fetch: failed to read response: %w", err)
		}

		responseHeaders := make(map[string]string, len(resp.Header))
		for name := range resp.Header {
			responseHeaders[name] = resp.Header.Get(name)
		}

		return map[string]any{
			"status":  resp.StatusCode,
			"headers": responseHeaders,
			"body":    string(raw),
		}, nil
	}
}
