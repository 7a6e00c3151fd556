package query

import "iter"

// Satisfies evaluates q against subject.
func Satisfies[T any](subject T, q Query[T]) (bool, error) {
	return q.IsSatisfiedBy(subject)
}

// Where yields the items of seq that satisfy q. An evaluation error is yielded
// with the zero T and ends the sequence.
func Where[T any](seq iter.Seq[T], q Query[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if err := q.Err(); err != nil {
			var zero T
			yield(zero, err)
			return
		}
		for item := range seq {
			ok, err := q.IsSatisfiedBy(item)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if ok && !yield(item, nil) {
				return
			}
		}
	}
}

// Filter returns the items that satisfy q, in order.
func Filter[T any](items []T, q Query[T]) ([]T, error) {
	if err := q.Err(); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		ok, err := q.IsSatisfiedBy(item)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}
