// Package template renders notification message bodies. Only variable
// substitution is supported: "{{ name }}" is replaced with the context
// value, undefined variables render as empty, and there are no control
// flow constructs.
package template

import (
	"fmt"
	"strconv"
	"strings"
)

// RenderError reports malformed template syntax. The caller drops the
// notification for the affected subscription; nothing is retried.
type RenderError struct {
	Reason string
}

func (e *RenderError) Error() string {
	return "template render error: " + e.Reason
}

// Render substitutes {{ name }} placeholders in body with values from ctx.
// Rendering is pure: the same inputs always produce the same output.
func Render(body string, ctx map[string]any) (string, error) {
	var out strings.Builder
	rest := body
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		out.WriteString(rest[:open])
		rest = rest[open+2:]
		close := strings.Index(rest, "}}")
		if close < 0 {
			return "", &RenderError{Reason: "unterminated placeholder"}
		}
		name := strings.TrimSpace(rest[:close])
		out.WriteString(formatValue(ctx[name]))
		rest = rest[close+2:]
	}
}

// formatValue renders a context value as a string. Unknown and nil values
// render as empty rather than failing the whole message.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
