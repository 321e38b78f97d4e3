// Package notify delivers automation notifications: SMTP email and
// webhook-based push, with {{var}} interpolation over run variables.
package notify

import (
	"fmt"
	"strings"
)

// Render substitutes {{name}} placeholders with values from vars. Dotted
// names descend into nested maps. Unknown placeholders are left verbatim so
// authoring mistakes stay visible in the delivered message.
func Render(text string, vars map[string]any) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	var b strings.Builder
	for {
		start := strings.Index(text, "{{")
		if start < 0 {
			b.WriteString(text)
			break
		}
		end := strings.Index(text[start:], "}}")
		if end < 0 {
			b.WriteString(text)
			break
		}
		end += start

		b.WriteString(text[:start])
		name := strings.TrimSpace(text[start+2 : end])
		if value, ok := resolveVar(vars, name); ok {
			fmt.Fprintf(&b, "%v", value)
		} else {
			b.WriteString(text[start : end+2])
		}
		text = text[end+2:]
	}
	return b.String()
}

func resolveVar(vars map[string]any, name string) (any, bool) {
	if name == "" {
		return nil, false
	}
	var current any = vars
	for _, key := range strings.Split(name, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
