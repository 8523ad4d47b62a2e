// Package jsondoc holds the document engine behind dynamic endpoints: a dot-path
// resolver, copy-on-write mutations, placeholder rendering, and the filter and
// pagination passes applied to array-shaped payloads.
//
// Documents are untyped JSON trees as produced by Parse: map[string]any,
// []any, string, int64, float64, bool and nil. Every function in this package
// switches on those shapes explicitly and never mutates its input.
package jsondoc

import (
	"fmt"
	"strconv"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

var canonicalOptions = func() *ojg.Options {
	opts := ojg.DefaultOptions
	opts.Sort = true
	return &opts
}()

// Parse decodes a JSON text into a document tree.
func Parse(text string) (any, error) {
	v, err := oj.ParseString(text)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return v, nil
}

// Canonical serializes v as compact JSON with object keys sorted, so two
// structurally equal documents always produce the same text.
func Canonical(v any) string {
	return oj.JSON(v, canonicalOptions)
}

// Equal reports whether a and b serialize to the same canonical form.
func Equal(a, b any) bool {
	return Canonical(a) == Canonical(b)
}

// stringify renders a leaf the way the filter engine compares it.
// Containers are compared through their canonical JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any, []any:
		return Canonical(t)
	default:
		return fmt.Sprint(t)
	}
}

// number extracts a numeric value from a document leaf.
func number(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
