package jsondoc

import (
	"strings"
	"time"
)

// Placeholder tokens recognised inside template strings.
const (
	TokenMethod    = "{{request.method}}"
	TokenPath      = "{{request.path}}"
	TokenQuery     = "{{request.query}}"
	TokenBody      = "{{request.body}}"
	TokenTimestamp = "{{timestamp}}"
)

// RequestInfo carries the live request values substituted into a template.
// Query and Body are document trees and are inserted as canonical JSON.
type RequestInfo struct {
	Method string
	Path   string
	Query  any
	Body   any
	Now    time.Time
}

// Render returns a copy of tmpl with every placeholder token replaced inside
// every string, including strings nested in objects and arrays. Object keys
// and non-string leaves are left as they are.
func Render(tmpl any, info RequestInfo) any {
	r := strings.NewReplacer(
		TokenMethod, info.Method,
		TokenPath, info.Path,
		TokenQuery, Canonical(info.Query),
		TokenBody, Canonical(info.Body),
		TokenTimestamp, info.Now.UTC().Format("2006-01-02T15:04:05.000Z"),
	)
	return render(tmpl, r)
}

func render(v any, r *strings.Replacer) any {
	switch t := v.(type) {
	case string:
		return r.Replace(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = render(item, r)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = render(item, r)
		}
		return out
	default:
		return v
	}
}
