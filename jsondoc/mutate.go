package jsondoc

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Operation names a content mutation.
type Operation string

const (
	OpAdd    Operation = "add"
	OpUpdate Operation = "update"
	OpAppend Operation = "append"
	OpRemove Operation = "remove"
	OpDelete Operation = "delete"
)

// Operations lists every supported mutation.
var Operations = []Operation{OpAdd, OpUpdate, OpAppend, OpRemove, OpDelete}

// Valid reports whether o is a supported operation.
func (o Operation) Valid() bool {
	return slices.Contains(Operations, o)
}

// RequiresValue reports whether o cannot run without a value.
func (o Operation) RequiresValue() bool {
	return o == OpAdd || o == OpUpdate || o == OpAppend
}

var (
	// ErrInvalidRequest marks a malformed mutation request.
	ErrInvalidRequest = errors.New("invalid mutation request")
	// ErrNotApplicable marks a request that does not fit the document's shape.
	ErrNotApplicable = errors.New("operation not applicable to document")
)

// OperationError describes why a mutation was refused.
type OperationError struct {
	Operation Operation
	Path      string
	Reason    string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Operation, e.Path, e.Reason)
}

func (e *OperationError) Unwrap() error { return e.Err }

// MutationRequest is a single path-addressed change to a document.
// HasValue distinguishes an absent value from an explicit JSON null.
type MutationRequest struct {
	Operation Operation
	Path      string
	Value     any
	HasValue  bool
}

// Apply runs req against doc and returns the resulting document. doc itself is
// never modified, so a refused operation leaves the caller's copy intact.
func Apply(doc any, req MutationRequest) (any, error) {
	fail := func(sentinel error, reason string) error {
		return &OperationError{Operation: req.Operation, Path: req.Path, Reason: reason, Err: sentinel}
	}

	if !req.Operation.Valid() {
		return nil, fail(ErrInvalidRequest, "unknown operation")
	}
	if req.Operation.RequiresValue() && !req.HasValue {
		return nil, fail(ErrInvalidRequest, "value is required")
	}
	path, err := ParsePath(req.Path)
	if err != nil {
		return nil, fail(ErrInvalidRequest, err.Error())
	}

	var out any
	switch req.Operation {
	case OpAdd, OpUpdate:
		out, err = rewrite(doc, path, createMissing, setLeaf(req.Value))
	case OpAppend:
		out, err = rewrite(doc, path, createMissing, appendLeaf(req.Value))
	case OpRemove:
		out, err = rewrite(doc, path, strict, removeLeaf)
	case OpDelete:
		out, err = rewrite(doc, path, strict, deleteLeaf(req.Value, req.HasValue))
	}
	if err != nil {
		return nil, fail(ErrNotApplicable, err.Error())
	}
	return out, nil
}

// setLeaf assigns value to an existing array slot or to an object field,
// creating the field if needed. Arrays are never extended.
func setLeaf(value any) leafFunc {
	return func(container any, last Segment) (any, error) {
		if _, _, err := lookup(container, last); err != nil {
			return nil, err
		}
		return withChild(container, last, value), nil
	}
}

// appendLeaf pushes value onto the array at last, creating an empty array when
// an object field is missing.
func appendLeaf(value any) leafFunc {
	return func(container any, last Segment) (any, error) {
		target, exists, err := lookup(container, last)
		if err != nil {
			return nil, err
		}
		if !exists {
			target = []any{}
		}
		arr, ok := target.([]any)
		if !ok {
			return nil, fmt.Errorf("target %q is %s, not an array", last, kindOf(target))
		}
		grown := append(slices.Clone(arr), value)
		return withChild(container, last, grown), nil
	}
}

// removeLeaf drops an existing object field or array element.
func removeLeaf(container any, last Segment) (any, error) {
	_, exists, err := lookup(container, last)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("field %q does not exist", last.Field)
	}
	return without(container, last), nil
}

// deleteLeaf splices out a trailing array index directly. Otherwise it removes
// the first element of the addressed array that equals value.
func deleteLeaf(value any, hasValue bool) leafFunc {
	return func(container any, last Segment) (any, error) {
		target, exists, err := lookup(container, last)
		if err != nil {
			return nil, err
		}
		if last.IsIndex {
			return without(container, last), nil
		}
		if !exists {
			return nil, fmt.Errorf("field %q does not exist", last.Field)
		}
		if !hasValue {
			return nil, errors.New("value is required unless the path ends on an array index")
		}
		arr, ok := target.([]any)
		if !ok {
			return nil, fmt.Errorf("target %q is %s, not an array", last, kindOf(target))
		}
		want := Canonical(value)
		idx := slices.IndexFunc(arr, func(item any) bool { return Canonical(item) == want })
		if idx < 0 {
			return nil, errors.New("no matching element found")
		}
		return withChild(container, last, slices.Delete(slices.Clone(arr), idx, idx+1)), nil
	}
}

// without returns a copy of container lacking seg. seg must exist.
func without(container any, seg Segment) any {
	switch c := container.(type) {
	case []any:
		return slices.Delete(slices.Clone(c), seg.Index, seg.Index+1)
	case map[string]any:
		out := maps.Clone(c)
		delete(out, seg.Field)
		return out
	}
	return container
}
