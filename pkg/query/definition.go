package query

import (
	"slices"
	"sync"

	"github.com/codepb/fluentqueries/pkg/expr"
)

// Definition is a named, reusable Query. The build function runs once, on
// first use.
//
//	var Adults = query.Define("adults", func() query.Query[Person] {
//		return query.Ordered(query.Has(age)).GreaterThanOrEqualTo(18)
//	})
type Definition[T any] struct {
	name  string
	build func() Query[T]

	once sync.Once
	q    Query[T]
}

// Define declares a named Query built by build.
func Define[T any](name string, build func() Query[T]) *Definition[T] {
	return &Definition[T]{name: name, build: build}
}

// Name returns the definition's name.
func (d *Definition[T]) Name() string { return d.name }

// Query returns the defined Query, building it on first call.
func (d *Definition[T]) Query() Query[T] {
	d.once.Do(func() {
		if d.build == nil {
			d.q = failed[T](expr.NewError(expr.ErrCodeInvalidDefinition, "Define", "definition %q has no builder", d.name))
			return
		}
		d.q = d.build()
	})
	return d.q
}

// IsSatisfiedBy evaluates the defined Query against subject.
func (d *Definition[T]) IsSatisfiedBy(subject T) (bool, error) {
	return d.Query().IsSatisfiedBy(subject)
}

// Registry holds Queries by name. A name can be defined only once.
type Registry[T any] struct {
	mu      sync.RWMutex
	queries map[string]Query[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{queries: make(map[string]Query[T])}
}

// Register adds q under name. It fails with DEFINITION_CONFLICT when name is
// already taken, and with q's own error when q failed to build.
func (r *Registry[T]) Register(name string, q Query[T]) error {
	if name == "" {
		return expr.NewError(expr.ErrCodeInvalidDefinition, "Register", "query name is empty")
	}
	if err := q.Err(); err != nil {
		return expr.WrapError(expr.ErrCodeInvalidDefinition, "Register", "query "+name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.queries[name]; exists {
		return expr.NewError(expr.ErrCodeDefinitionConflict, "Register", "query %q is already defined", name)
	}
	r.queries[name] = q
	return nil
}

// Define registers the Query of d under d's name.
func (r *Registry[T]) Define(d *Definition[T]) error {
	return r.Register(d.Name(), d.Query())
}

// Lookup returns the Query registered under name.
func (r *Registry[T]) Lookup(name string) (Query[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queries[name]
	return q, ok
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.queries))
	for name := range r.queries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
