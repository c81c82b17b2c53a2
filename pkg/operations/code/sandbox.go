package code

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/calder/automa/pkg/datachain"
	"github.com/dop251/goja"
	"github.com/google/uuid"
)

// maxLogLines caps captured console output per execution.
const maxLogLines = 1000

// logBuffer collects console output from user code. Safe for concurrent
// use since the script goroutine may outlive a timed-out execution.
type logBuffer struct {
	mu      sync.Mutex
	lines   []string
	dropped bool
}

func newLogBuffer() *logBuffer {
	return &logBuffer{}
}

func (b *logBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) >= maxLogLines {
		if !b.dropped {
			b.lines = append(b.lines, "[log output truncated]")
			b.dropped = true
		}

		return
	}

	b.lines = append(b.lines, line)
}

func (b *logBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := make([]string, len(b.lines))
	copy(lines, b.lines)

	return lines
}

// installGlobals wires the fixed capability surface into the VM: a
// capturing console, the explicit context object, pure helpers, and the
// constrained fetch. Nothing else from the host is reachable.
func (o *Operation) installGlobals(vm *goja.Runtime, chain *datachain.Context, logs *logBuffer) error {
	console := vm.NewObject()

	capture := func(level string) func(call goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, 0, len(call.Arguments))
			for _, arg := range call.Arguments {
				parts = append(parts, formatValue(arg.Export()))
			}

			line := strings.Join(parts, " ")
			if level != "log" {
				line = "[" + level + "] " + line
			}

			logs.Append(line)

			return goja.Undefined()
		}
	}

	if err := console.Set("log", capture("log")); err != nil {
		return err
	}

	if err := console.Set("warn", capture("warn")); err != nil {
		return err
	}

	if err := console.Set("error", capture("error")); err != nil {
		return err
	}

	if err := vm.Set("console", console); err != nil {
		return err
	}

	// One explicit context object instead of ambient globals: the script
	// reads context.trigger, context.last, context.input and the run
	// metadata under context.meta.
	snapshot := chain.Snapshot()

	if err := vm.Set("context", map[string]any{
		"trigger": snapshot["trigger"],
		"last":    snapshot["last"],
		"input":   snapshot["input"],
		"meta":    snapshot["context"],
	}); err != nil {
		return err
	}

	if err := vm.Set("utils", o.utilsObject(vm)); err != nil {
		return err
	}

	if err := vm.Set("now", func() string {
		return time.Now().UTC().Format(time.RFC3339Nano)
	}); err != nil {
		return err
	}

	if err := vm.Set("uuid", func() string {
		return uuid.New().String()
	}); err != nil {
		return err
	}

	return vm.Set("fetch", o.fetcher.jsFunc(vm))
}

// utilsObject exposes pure string/array/object helpers.
func (o *Operation) utilsObject(vm *goja.Runtime) *goja.Object {
	utils := vm.NewObject()

	_ = utils.Set("upper", strings.ToUpper)
	_ = utils.Set("lower", strings.ToLower)
	_ = utils.Set("trim", strings.TrimSpace)
	_ = utils.Set("split", func(s, sep string) []string { return strings.Split(s, sep) })
	_ = utils.Set("join", func(items []any, sep string) string {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, formatValue(item))
		}

		return strings.Join(parts, sep)
	})
	_ = utils.Set("keys", func(m map[string]any) []string {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		return keys
	})
	_ = utils.Set("values", func(m map[string]any) []any {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		values := make([]any, 0, len(keys))
		for _, k := range keys {
			values = append(values, m[k])
		}

		return values
	})
	_ = utils.Set("merge", func(a, b map[string]any) map[string]any {
		merged := make(map[string]any, len(a)+len(b))
		for k, v := range a {
			merged[k] = v
		}

		for k, v := range b {
			merged[k] = v
		}

		return merged
	})
	_ = utils.Set("contains", func(haystack any, needle any) bool {
		switch h := haystack.(type) {
		case string:
			s, _ := needle.(string)

			return strings.Contains(h, s)
		case []any:
			for _, item := range h {
				if formatValue(item) == formatValue(needle) {
					return true
				}
			}

			return false
		default:
			return false
		}
	})

	return utils
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	}
}
