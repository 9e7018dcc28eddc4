package query

import (
	"fmt"
	"reflect"
	"strings"
)

// Evaluate reports whether doc satisfies c. A nil c matches every document.
//
// A path that is missing, or that runs through a value that is not a map,
// resolves to undefined. Undefined fails every operator except Exists, which
// is false, and Ne, which is true.
//
// Evaluate panics on a malformed condition (an unknown operator, connective
// or Condition implementation). These are programming errors.
func Evaluate(c Condition, doc map[string]any) bool {
	switch c := c.(type) {
	case nil:
		return true
	case *Leaf:
		v, ok := resolve(doc, c.path)
		r := apply(c.op, v, ok, c.operand)
		if c.negated {
			return !r
		}
		return r
	case *Composite:
		switch c.logic {
		case And:
			return Evaluate(c.left, doc) && Evaluate(c.right, doc)
		case Or:
			return Evaluate(c.left, doc) || Evaluate(c.right, doc)
		default:
			panic(fmt.Sprintf("query: unknown connective %v in %s", c.logic, c))
		}
	default:
		panic(fmt.Sprintf("query: unknown condition type %T", c))
	}
}

// resolve walks doc along path. The second result is false when the path is
// undefined.
func resolve(doc map[string]any, path []string) (any, bool) {
	var cur any = doc
	for _, key := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func apply(op Op, v any, defined bool, operand any) bool {
	switch op {
	case OpExists:
		return defined
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpMatches, OpIn, OpAny, OpAll:
	default:
		panic(fmt.Sprintf("query: unknown operator %v", op))
	}
	if !defined {
		return op == OpNe
	}

	switch op {
	case OpEq:
		return equal(v, operand)
	case OpNe:
		return !equal(v, operand)
	case OpLt, OpLe, OpGt, OpGe:
		c, ok := compare(v, operand)
		if !ok {
			return false
		}
		switch op {
		case OpLt:
			return c < 0
		case OpLe:
			return c <= 0
		case OpGt:
			return c > 0
		default:
			return c >= 0
		}
	case OpMatches:
		if v == nil || operand == nil {
			return false
		}
		return strings.Contains(strings.ToLower(fmt.Sprint(v)), strings.ToLower(fmt.Sprint(operand)))
	case OpIn:
		set, _ := asList(operand)
		return contains(set, v)
	case OpAny:
		vals, ok := asList(v)
		if !ok {
			return false
		}
		set, _ := asList(operand)
		for _, e := range vals {
			if contains(set, e) {
				return true
			}
		}
		return false
	default: // OpAll
		vals, ok := asList(v)
		if !ok {
			return false
		}
		set, _ := asList(operand)
		for _, want := range set {
			if !contains(vals, want) {
				return false
			}
		}
		return true
	}
}

func contains(set []any, v any) bool {
	for _, e := range set {
		if equal(e, v) {
			return true
		}
	}
	return false
}

func asMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

func asList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	l := make([]any, rv.Len())
	for i := range l {
		l[i] = rv.Index(i).Interface()
	}
	return l, true
}
