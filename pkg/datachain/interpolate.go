package datachain

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// pathPattern matches the engine's reserved references inside option
// values. Substitution triggers only on these prefixes so string literals
// that merely look like paths never false-positive.
var pathPattern = regexp.MustCompile(`\$(trigger|last|input|context)\b(?:\.[A-Za-z0-9_-]+)*`)

// Interpolate walks an options value recursively and substitutes path
// references against the live chain. A string that is exactly one
// reference resolves to the referenced value with its type preserved;
// references embedded in longer strings are stringified in place. An
// unresolved path yields nil (or an empty string when embedded) instead of
// an error: a misconfigured reference degrades the node, it does not abort
// it.
func (c *Context) Interpolate(value any) any {
	switch v := value.(type) {
	case string:
		return c.interpolateString(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = c.Interpolate(item)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = c.Interpolate(item)
		}

		return out
	default:
		return value
	}
}

// InterpolateOptions interpolates a full options map.
func (c *Context) InterpolateOptions(options map[string]any) map[string]any {
	if options == nil {
		return map[string]any{}
	}

	resolved, _ := c.Interpolate(options).(map[string]any)

	return resolved
}

// Resolve looks up a single dotted path reference such as
// "$last.user.email". The boolean is false when the path does not resolve.
func (c *Context) Resolve(path string) (any, bool) {
	if !strings.HasPrefix(path, "$") {
		return nil, false
	}

	segments := strings.Split(path[1:], ".")

	var current any

	switch segments[0] {
	case "trigger":
		current = c.trigger
	case "last":
		current = c.Last()
	case "input":
		c.mu.RLock()
		input := make(map[string]any, len(c.input))
		for k, v := range c.input {
			input[k] = v
		}
		c.mu.RUnlock()

		current = input
	case "context":
		current = c.Meta()
	default:
		return nil, false
	}

	for _, segment := range segments[1:] {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}

			current = next
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}

			current = node[index]
		default:
			return nil, false
		}
	}

	return current, true
}

func (c *Context) interpolateString(s string) any {
	match := pathPattern.FindString(s)
	if match == "" {
		return s
	}

	// A string that is exactly one reference keeps the resolved type.
	if match == s {
		value, _ := c.Resolve(s)

		return value
	}

	return pathPattern.ReplaceAllStringFunc(s, func(ref string) string {
		value, ok := c.Resolve(ref)
		if !ok {
			return ""
		}

		return stringify(value)
	})
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(encoded)
	}
}
