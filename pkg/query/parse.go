package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFilter is returned by ParseFilter for malformed expressions.
var ErrInvalidFilter = errors.New("invalid filter expression")

// filterOps lists binary operator tokens, longest first so that "<=" wins
// over "<" at the same position.
var filterOps = []struct {
	tok string
	op  Op
}{
	{":any=", OpAny},
	{":all=", OpAll},
	{":in=", OpIn},
	{"==", OpEq},
	{"!=", OpNe},
	{"<=", OpLe},
	{">=", OpGe},
	{"~=", OpMatches},
	{"<", OpLt},
	{">", OpGt},
	{"=", OpEq},
}

// ParseFilter parses a single filter expression of the form
// "path<op>value", "path?" or "path!?". Path segments are separated by dots.
// The value is decoded as JSON when possible and used as a raw string
// otherwise; :in=, :any= and :all= require a JSON array.
//
//	status==new
//	meta.priority>=3
//	subject~=rent
//	tags:any=["urgent","leak"]
//	assignee!?
func ParseFilter(expr string) (Condition, error) {
	expr = strings.TrimSpace(expr)
	for i := 0; i < len(expr); i++ {
		for _, fo := range filterOps {
			if !strings.HasPrefix(expr[i:], fo.tok) {
				continue
			}
			q, err := parsePath(expr[:i])
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidFilter, expr, err)
			}
			raw := strings.TrimSpace(expr[i+len(fo.tok):])
			switch fo.op {
			case OpIn, OpAny, OpAll:
				var values []any
				if err := json.Unmarshal([]byte(raw), &values); err != nil {
					return nil, fmt.Errorf("%w: %q: %s needs a JSON array", ErrInvalidFilter, expr, fo.tok)
				}
				return q.leaf(fo.op, values), nil
			case OpMatches:
				return q.Matches(raw), nil
			default:
				return q.leaf(fo.op, parseValue(raw)), nil
			}
		}
	}

	switch {
	case strings.HasSuffix(expr, "!?"):
		q, err := parsePath(strings.TrimSuffix(expr, "!?"))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidFilter, expr, err)
		}
		return q.Exists().Not(), nil
	case strings.HasSuffix(expr, "?"):
		q, err := parsePath(strings.TrimSuffix(expr, "?"))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidFilter, expr, err)
		}
		return q.Exists(), nil
	}
	return nil, fmt.Errorf("%w: %q: no operator", ErrInvalidFilter, expr)
}

// ParseFilters parses every expression and joins them with AND. No
// expressions yield a nil Condition, which matches everything.
func ParseFilters(exprs []string) (Condition, error) {
	conds := make([]Condition, 0, len(exprs))
	for _, e := range exprs {
		c, err := ParseFilter(e)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return AllOf(conds...), nil
}

func parsePath(s string) (Query, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Query{}, errors.New("empty path")
	}
	segs := strings.Split(s, ".")
	for _, seg := range segs {
		if seg == "" {
			return Query{}, errors.New("empty path segment")
		}
	}
	return Where(segs...), nil
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
