// Package query builds typed, composable predicates.
//
// A Query[T] wraps one expression tree of shape (T) -> bool. Queries are
// built from leaf tests and combined with And and Or:
//
//	name := query.Prop("Name", func(p Person) string { return p.Name })
//	age := query.Prop("Age", func(p Person) int { return p.Age })
//
//	q := query.Text(query.Has(name)).StartingWith("A")
//	q = query.Ordered(query.Continue(q.And(), age)).GreaterThan(18)
//
//	ok, err := q.IsSatisfiedBy(Person{Name: "Ada", Age: 36})
//
// And and Or return a Continuation. The next leaf chosen through it is folded
// into the left-hand Query. Each leaf is built over its own fresh parameter,
// and folding rewrites the leaf onto the left-hand parameter, so the result
// always has exactly one parameter.
//
// Satisfying embeds a Query over a member's type into a Query over the
// containing type by substituting the selector path for the sub-query's
// parameter.
//
// The capability views Ordered, Text, Bool and Sequence only accept builders
// whose selected type supports the tests they offer, so an invalid test does
// not compile.
//
// Queries are immutable and safe for concurrent use. AsExpression exposes the
// tree for translators such as package querysql.
package query
