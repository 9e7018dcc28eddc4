// Package query builds field paths and conditions over schema-less documents
// and evaluates them in memory.
//
// A Query is a path from the document root. Terminal calls on a Query bind an
// operator and operand into a Condition; conditions compose with And, Or and
// Not:
//
//	email := query.Where("sender")
//	cond := email.Eq("a@x").And(query.Where("meta", "priority").Ge(3))
//	ok := query.Evaluate(cond, doc)
//
// Missing fields and type mismatches never fail evaluation; they make the
// comparison false. Only a malformed condition panics.
package query
