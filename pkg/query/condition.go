package query

import (
	"fmt"
	"strings"
)

// Op is a leaf comparison operator.
type Op uint8

// Supported operators.
const (
	OpEq Op = iota + 1
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpMatches
	OpExists
	OpIn
	OpAny
	OpAll
)

var opNames = map[Op]string{
	OpEq:      "==",
	OpNe:      "!=",
	OpLt:      "<",
	OpLe:      "<=",
	OpGt:      ">",
	OpGe:      ">=",
	OpMatches: "~=",
	OpExists:  "?",
	OpIn:      ":in=",
	OpAny:     ":any=",
	OpAll:     ":all=",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// dual maps an operator onto the operator that is its exact negation on
// every document. Ordering operators have none: a missing or mistyped field
// fails both < and >=.
var dual = map[Op]Op{
	OpEq: OpNe,
	OpNe: OpEq,
}

// Logic joins two conditions.
type Logic uint8

// Supported connectives.
const (
	And Logic = iota + 1
	Or
)

func (l Logic) String() string {
	switch l {
	case And:
		return "AND"
	case Or:
		return "OR"
	default:
		return fmt.Sprintf("Logic(%d)", uint8(l))
	}
}

// Condition is an immutable predicate over a document. Implementations are
// *Leaf and *Composite.
type Condition interface {
	And(other Condition) Condition
	Or(other Condition) Condition
	Not() Condition
	String() string

	condition()
}

// Leaf binds an operator and operand to a path.
type Leaf struct {
	path    []string
	op      Op
	operand any
	negated bool
}

// Path returns a copy of the leaf's path.
func (l *Leaf) Path() []string { return append([]string(nil), l.path...) }

// Op returns the leaf operator.
func (l *Leaf) Op() Op { return l.op }

// Operand returns the value the field is compared against.
func (l *Leaf) Operand() any { return l.operand }

// Negated reports whether the leaf result is inverted. Eq and Ne are never
// negated; Not swaps them instead.
func (l *Leaf) Negated() bool { return l.negated }

func (l *Leaf) And(other Condition) Condition { return &Composite{left: l, logic: And, right: other} }
func (l *Leaf) Or(other Condition) Condition  { return &Composite{left: l, logic: Or, right: other} }

// Not swaps Eq and Ne. Every other operator is marked negated, so that
// Evaluate(c.Not(), d) == !Evaluate(c, d) holds for any document.
func (l *Leaf) Not() Condition {
	n := *l
	if d, ok := dual[l.op]; ok {
		n.op = d
		return &n
	}
	n.negated = !l.negated
	return &n
}

func (l *Leaf) String() string {
	var b strings.Builder
	if l.negated {
		b.WriteString("!")
	}
	b.WriteString(Query{path: l.path}.String())
	b.WriteString(l.op.String())
	if l.op != OpExists {
		fmt.Fprintf(&b, "%v", l.operand)
	}
	return b.String()
}

func (*Leaf) condition() {}

// Composite joins two conditions with AND or OR.
type Composite struct {
	left  Condition
	logic Logic
	right Condition
}

// Left returns the left operand.
func (c *Composite) Left() Condition { return c.left }

// Right returns the right operand.
func (c *Composite) Right() Condition { return c.right }

// Logic returns the connective.
func (c *Composite) Logic() Logic { return c.logic }

func (c *Composite) And(other Condition) Condition {
	return &Composite{left: c, logic: And, right: other}
}

func (c *Composite) Or(other Condition) Condition {
	return &Composite{left: c, logic: Or, right: other}
}

// Not applies De Morgan's laws.
func (c *Composite) Not() Condition {
	logic := And
	if c.logic == And {
		logic = Or
	}
	return &Composite{left: c.left.Not(), logic: logic, right: c.right.Not()}
}

func (c *Composite) String() string {
	return "(" + c.left.String() + " " + c.logic.String() + " " + c.right.String() + ")"
}

func (*Composite) condition() {}

// AllOf joins conds with AND. It returns nil for no conditions, which
// matches every document.
func AllOf(conds ...Condition) Condition {
	var out Condition
	for _, c := range conds {
		if c == nil {
			continue
		}
		if out == nil {
			out = c
			continue
		}
		out = out.And(c)
	}
	return out
}
