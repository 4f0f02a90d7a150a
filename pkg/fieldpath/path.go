// Package fieldpath resolves dotted field paths such as "stocks.0.productName"
// against nested map[string]any / []any structures.
package fieldpath

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var (
	// ErrEmptyPath is returned when a write targets an empty path.
	ErrEmptyPath = errors.New("fieldpath: path is empty")
	// ErrEmptySegment is returned for paths such as "a..b" or ".a".
	ErrEmptySegment = errors.New("fieldpath: empty path segment")
	// ErrIndexExpected is returned when a non-numeric segment addresses a sequence.
	ErrIndexExpected = errors.New("fieldpath: index segment expected for sequence")
	// ErrNilRoot is returned by SetPath when the target map is nil.
	ErrNilRoot = errors.New("fieldpath: root map is nil")
)

// Segment is one parsed component of a dotted path. Every segment keeps its
// raw Key; segments that parse as non-negative integers also carry an Index.
// Whether the index or the key is used depends on the container the segment
// is applied to.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	return s.Key
}

// Parse splits a dotted path into typed segments.
func Parse(path string) ([]Segment, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	parts := strings.Split(path, ".")
	out := make([]Segment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w in %q", ErrEmptySegment, path)
		}
		seg := Segment{Key: part}
		if isDigits(part) {
			if idx, err := strconv.Atoi(part); err == nil {
				seg.Index = idx
				seg.IsIndex = true
			}
		}
		out = append(out, seg)
	}
	return out, nil
}

// Get resolves path against root. Typed slices, arrays and string-keyed maps
// are walked like []any and map[string]any. Missing segments, nil
// intermediates and scalars in the middle of the path all report (nil, false).
func Get(root map[string]any, path string) (any, bool) {
	if root == nil {
		return nil, false
	}
	segments, err := Parse(path)
	if err != nil {
		return nil, false
	}

	current := any(root)
	for _, seg := range segments {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[seg.Key]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			if !seg.IsIndex || seg.Index >= len(node) {
				return nil, false
			}
			current = node[seg.Index]
		default:
			if items, ok := Sequence(node); ok {
				if !seg.IsIndex || seg.Index >= len(items) {
					return nil, false
				}
				current = items[seg.Index]
				continue
			}
			if fields, ok := Mapping(node); ok {
				next, found := fields[seg.Key]
				if !found {
					return nil, false
				}
				current = next
				continue
			}
			return nil, false
		}
	}
	return current, true
}

// CloneShallow returns a new top-level map sharing its children with root.
func CloneShallow(root map[string]any) map[string]any {
	out := make(map[string]any, len(root))
	for k, v := range root {
		out[k] = v
	}
	return out
}

// Set returns a shallow copy of root with value written at path. root itself
// is left untouched.
func Set(root map[string]any, path string, value any) (map[string]any, error) {
	out := CloneShallow(root)
	if err := SetPath(out, path, value); err != nil {
		return nil, err
	}
	return out, nil
}

// SetPath writes value at path inside root, mutating root's top level.
// Missing intermediates are created as []any when the following segment is
// an index and as map[string]any otherwise. Existing intermediate containers
// keep their kind and are copied before being written to, so callers holding
// older references to them are unaffected. Writes past the end of a sequence
// pad it with nil.
func SetPath(root map[string]any, path string, value any) error {
	if root == nil {
		return ErrNilRoot
	}
	segments, err := Parse(path)
	if err != nil {
		return err
	}
	if _, err := assign(root, segments, value); err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	return nil
}

func assign(container any, segments []Segment, value any) (any, error) {
	seg, rest := segments[0], segments[1:]

	switch node := container.(type) {
	case map[string]any:
		if len(rest) == 0 {
			node[seg.Key] = value
			return node, nil
		}
		child, err := assign(prepare(node[seg.Key], rest[0]), rest, value)
		if err != nil {
			return nil, err
		}
		node[seg.Key] = child
		return node, nil

	case []any:
		if !seg.IsIndex {
			return nil, fmt.Errorf("%w: got %q", ErrIndexExpected, seg.Key)
		}
		if seg.Index >= len(node) {
			node = append(node, make([]any, seg.Index+1-len(node))...)
		}
		if len(rest) == 0 {
			node[seg.Index] = value
			return node, nil
		}
		child, err := assign(prepare(node[seg.Index], rest[0]), rest, value)
		if err != nil {
			return nil, err
		}
		node[seg.Index] = child
		return node, nil

	default:
		return nil, fmt.Errorf("fieldpath: unexpected container %T for segment %q", container, seg.Key)
	}
}

// prepare returns a container that is safe to write into: a copy of an
// existing container, or a fresh one whose kind is chosen by next. Typed
// slices, arrays and string-keyed maps are copied into []any and
// map[string]any so their contents survive the write.
func prepare(existing any, next Segment) any {
	switch node := existing.(type) {
	case map[string]any:
		return CloneShallow(node)
	case []any:
		return append([]any(nil), node...)
	}
	if items, ok := Sequence(existing); ok {
		return items
	}
	if fields, ok := Mapping(existing); ok {
		return fields
	}
	if next.IsIndex {
		return []any{}
	}
	return make(map[string]any)
}

// Sequence returns the elements of a slice or array value as []any. A []any
// is returned as is; other kinds are copied.
func Sequence(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
	default:
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Mapping returns a map with string keys as map[string]any. A map[string]any
// is returned as is; other map types are copied.
func Mapping(value any) (map[string]any, bool) {
	if fields, ok := value.(map[string]any); ok {
		return fields, true
	}
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// Clone deep-copies nested maps and slices. Other values are returned as is.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = Clone(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = Clone(v)
		}
		return clone
	default:
		return typed
	}
}

// Join appends child to parent using the dotted separator.
func Join(parent, child string) string {
	parent = strings.TrimSpace(parent)
	child = strings.TrimSpace(child)
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
