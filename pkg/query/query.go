package query

import (
	"reflect"
	"strings"
)

// Query is an immutable path of field names from the document root. The zero
// Query is the root itself.
type Query struct {
	path []string
}

// Root returns the Query addressing the whole document.
func Root() Query {
	return Query{}
}

// Where returns a Query for the given path segments.
func Where(path ...string) Query {
	return Query{path: append([]string(nil), path...)}
}

// Field returns a new Query with name appended to the path.
func (q Query) Field(name string) Query {
	p := make([]string, len(q.path), len(q.path)+1)
	copy(p, q.path)
	return Query{path: append(p, name)}
}

// Path returns a copy of the path segments.
func (q Query) Path() []string {
	return append([]string(nil), q.path...)
}

// String renders the path with dot separators; the root renders as ".".
func (q Query) String() string {
	if len(q.path) == 0 {
		return "."
	}
	return strings.Join(q.path, ".")
}

func (q Query) leaf(op Op, operand any) Condition {
	return &Leaf{path: q.path, op: op, operand: operand}
}

// Eq matches when the value equals v.
func (q Query) Eq(v any) Condition { return q.leaf(OpEq, v) }

// Ne matches when the value does not equal v, including when it is missing.
func (q Query) Ne(v any) Condition { return q.leaf(OpNe, v) }

// Lt matches when the value orders before v.
func (q Query) Lt(v any) Condition { return q.leaf(OpLt, v) }

// Le matches when the value orders before or equal to v.
func (q Query) Le(v any) Condition { return q.leaf(OpLe, v) }

// Gt matches when the value orders after v.
func (q Query) Gt(v any) Condition { return q.leaf(OpGt, v) }

// Ge matches when the value orders after or equal to v.
func (q Query) Ge(v any) Condition { return q.leaf(OpGe, v) }

// Matches is a case-insensitive substring test against the stringified value.
func (q Query) Matches(substr string) Condition { return q.leaf(OpMatches, substr) }

// Exists matches when the path resolves, even to null.
func (q Query) Exists() Condition { return q.leaf(OpExists, nil) }

// In matches when the value equals one of values. A single slice argument
// is spread, so In([]string{"a", "b"}) is In("a", "b").
func (q Query) In(values ...any) Condition { return q.leaf(OpIn, spread(values)) }

// Any matches when the value is a list sharing at least one element with
// values. A single slice argument is spread as for In.
func (q Query) Any(values ...any) Condition { return q.leaf(OpAny, spread(values)) }

// All matches when the value is a list containing every element of values.
// A single slice argument is spread as for In.
func (q Query) All(values ...any) Condition { return q.leaf(OpAll, spread(values)) }

// spread expands a lone slice or array argument into its elements. Byte
// slices are values, not lists.
func spread(values []any) []any {
	if len(values) != 1 || values[0] == nil {
		return values
	}
	if _, ok := values[0].([]byte); ok {
		return values
	}
	rv := reflect.ValueOf(values[0])
	if k := rv.Kind(); k != reflect.Slice && k != reflect.Array {
		return values
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
