package query

// Continuation folds the next leaf predicate into an enclosing conjunction or
// disjunction. It is produced by Query.And and Query.Or, and holds no state
// besides the left-hand Query, so it may be resolved any number of times.
//
// The zero Continuation (see For) returns the leaf unchanged.
type Continuation[T any] struct {
	fold func(Query[T]) Query[T]
}

// For returns the continuation that wraps a leaf as a standalone Query.
func For[T any]() Continuation[T] {
	return Continuation[T]{}
}

// Resolve folds q into the continuation.
func (c Continuation[T]) Resolve(q Query[T]) Query[T] {
	if c.fold == nil {
		return q
	}
	return c.fold(q)
}

// Is tests the whole subject rather than one of its members.
func (c Continuation[T]) Is() Builder[T, T] {
	return Continue(c, Identity[T]())
}

// Satisfying folds an existing Query into the continuation.
func (c Continuation[T]) Satisfying(q Query[T]) Query[T] {
	return c.Is().Satisfying(q)
}

// Continue begins a leaf predicate on the value sel picks out of T. The leaf
// is folded into c once it is chosen.
func Continue[T, P any](c Continuation[T], sel Selector[T, P]) Builder[T, P] {
	return Builder[T, P]{sel: sel, cont: c}
}

// Has begins a standalone leaf predicate on the value sel picks out of T.
func Has[T, P any](sel Selector[T, P]) Builder[T, P] {
	return Continue(For[T](), sel)
}

// Is begins a standalone leaf predicate on the whole subject.
func Is[T any]() Builder[T, T] {
	return For[T]().Is()
}
