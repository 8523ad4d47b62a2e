package jsondoc

import (
	"fmt"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var indexSegment = regexp.MustCompile(`^\d+$`)

// Segment is one step of a Path: either an object field or an array index.
type Segment struct {
	Field   string
	Index   int
	IsIndex bool
	// raw keeps the text of an index too large to parse.
	raw string
}

func (s Segment) String() string {
	if s.IsIndex {
		if s.raw != "" {
			return s.raw
		}
		return strconv.Itoa(s.Index)
	}
	return s.Field
}

// Path is a parsed dot-separated path expression such as "data.items.0.name".
type Path []Segment

// ParsePath splits expr on "." and drops empty segments. Purely numeric
// segments address array elements. A path with no segments is rejected.
func ParsePath(expr string) (Path, error) {
	var p Path
	for _, part := range strings.Split(expr, ".") {
		if part == "" {
			continue
		}
		if indexSegment.MatchString(part) {
			seg := Segment{IsIndex: true}
			idx, err := strconv.Atoi(part)
			if err != nil {
				// too large to ever be in range
				idx, seg.raw = math.MaxInt, part
			}
			seg.Index = idx
			p = append(p, seg)
			continue
		}
		p = append(p, Segment{Field: part})
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("path %q has no segments", expr)
	}
	return p, nil
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// traversal controls what happens when an intermediate object field is missing.
type traversal int

const (
	// createMissing materializes missing intermediate fields as empty objects.
	createMissing traversal = iota
	// strict fails on any missing field.
	strict
)

// leafFunc receives the container that holds the last segment and returns its
// replacement. It must not modify container.
type leafFunc func(container any, last Segment) (any, error)

// rewrite walks p through node and rebuilds every container along the way, so
// the returned tree shares untouched branches with node but never aliases a
// modified one. Any incompatible step aborts the whole rewrite.
func rewrite(node any, p Path, mode traversal, leaf leafFunc) (any, error) {
	if len(p) == 1 {
		return leaf(node, p[0])
	}
	child, err := descend(node, p[0], mode)
	if err != nil {
		return nil, err
	}
	replaced, err := rewrite(child, p[1:], mode, leaf)
	if err != nil {
		return nil, err
	}
	return withChild(node, p[0], replaced), nil
}

func descend(node any, seg Segment, mode traversal) (any, error) {
	var child any
	if seg.IsIndex {
		arr, ok := node.([]any)
		if !ok {
			return nil, fmt.Errorf("segment %q requires an array, found %s", seg, kindOf(node))
		}
		if seg.Index >= len(arr) {
			return nil, fmt.Errorf("index %s out of range (length %d)", seg, len(arr))
		}
		child = arr[seg.Index]
	} else {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("segment %q requires an object, found %s", seg, kindOf(node))
		}
		v, exists := obj[seg.Field]
		if !exists {
			if mode == strict {
				return nil, fmt.Errorf("field %q does not exist", seg.Field)
			}
			return map[string]any{}, nil
		}
		child = v
	}
	if child == nil {
		return nil, fmt.Errorf("segment %q is null", seg)
	}
	return child, nil
}

// withChild returns a shallow copy of container with seg replaced by child.
func withChild(container any, seg Segment, child any) any {
	switch c := container.(type) {
	case []any:
		out := slices.Clone(c)
		out[seg.Index] = child
		return out
	case map[string]any:
		out := maps.Clone(c)
		out[seg.Field] = child
		return out
	}
	return container
}

// lookup reads seg from container without creating anything.
func lookup(container any, seg Segment) (any, bool, error) {
	if seg.IsIndex {
		arr, ok := container.([]any)
		if !ok {
			return nil, false, fmt.Errorf("index %s requires an array, found %s", seg, kindOf(container))
		}
		if seg.Index >= len(arr) {
			return nil, false, fmt.Errorf("index %s out of range (length %d)", seg, len(arr))
		}
		return arr[seg.Index], true, nil
	}
	obj, ok := container.(map[string]any)
	if !ok {
		return nil, false, fmt.Errorf("field %q requires an object, found %s", seg.Field, kindOf(container))
	}
	v, exists := obj[seg.Field]
	return v, exists, nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, int, float64:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
