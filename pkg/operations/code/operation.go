// Package code provides the sandboxed custom-code operation. User-authored
// JavaScript runs in a goja VM with a fixed, explicit context object and
// an allow-listed capability surface; completion races a timer.
package code

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calder/automa/pkg/datachain"
	"github.com/calder/automa/pkg/protocol"
	"github.com/dop251/goja"
)

const (
	// DefaultTimeoutMs bounds user code when no timeout_ms option is set.
	DefaultTimeoutMs = 5000

	// MaxTimeoutMs is the hard ceiling a single node may configure.
	MaxTimeoutMs = 60000
)

// Operation executes user JavaScript against the data chain.
type Operation struct {
	id      string
	script  string
	timeout time.Duration
	fetcher *fetcher
}

// New creates a code operation from interpolated options.
func New(id string, options map[string]any) (*Operation, error) {
	script, ok := options["script"].(string)
	if !ok || script == "" {
		return nil, errors.New("missing required field 'script'")
	}

	timeoutMs := int64(DefaultTimeoutMs)
	if raw, ok := options["timeout_ms"]; ok {
		switch v := raw.(type) {
		case float64:
			timeoutMs = int64(v)
		case int:
			timeoutMs = int64(v)
		case int64:
			timeoutMs = v
		}
	}

	if timeoutMs <= 0 || timeoutMs > MaxTimeoutMs {
		return nil, fmt.Errorf("timeout_ms must be between 1 and %d", MaxTimeoutMs)
	}

	return &Operation{
		id:      id,
		script:  script,
		timeout: time.Duration(timeoutMs) * time.Millisecond,
		fetcher: newFetcher(),
	}, nil
}

type runOutcome struct {
	value goja.Value
	err   error
}

// Execute runs the script with the allow-listed globals installed. The
// script is wrapped in a function so return statements work; its return
// value becomes the operation output. On timeout the VM is interrupted and
// the result abandoned; captured console output survives in the partial
// Result either way.
func (o *Operation) Execute(ctx context.Context, chain *datachain.Context) (*protocol.Result, error) {
	vm := goja.New()
	logs := newLogBuffer()

	if err := o.installGlobals(vm, chain, logs); err != nil {
		return nil, fmt.Errorf("failed to prepare sandbox: %w", err)
	}

	wrapped := "(function() {\n" + o.script + "\n})()"

	done := make(chan runOutcome, 1)

	go func() {
		value, err := vm.RunString(wrapped)
		done <- runOutcome{value: value, err: err}
	}()

	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	select {
	case outcome := <-done:
		result := &protocol.Result{Logs: logs.Lines()}

		if outcome.err != nil {
			return result, asRuntimeError(outcome.err)
		}

		if outcome.value != nil && !goja.IsUndefined(outcome.value) && !goja.IsNull(outcome.value) {
			result.Output = outcome.value.Export()
		}

		return result, nil

	case <-timer.C:
		vm.Interrupt("execution timed out")

		return &protocol.Result{Logs: logs.Lines()}, &TimeoutError{Timeout: o.timeout}

	case <-ctx.Done():
		vm.Interrupt("execution cancelled")

		return &protocol.Result{Logs: logs.Lines()}, ctx.Err()
	}
}

func asRuntimeError(err error) error {
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return &RuntimeError{
			Message: exception.Value().String(),
			Stack:   exception.String(),
		}
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return &RuntimeError{Message: "execution interrupted", Stack: interrupted.String()}
	}

	return &RuntimeError{Message: err.Error()}
}
