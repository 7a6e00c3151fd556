// Package expr is the expression model that queries are built from.
//
// An expression is an immutable tree of nodes (parameters, constants, member
// access, comparisons, boolean connectives, function calls and lambdas), each
// carrying its static type. The package offers three operations over trees:
//
//   - Rewriting. Substitute replaces a parameter by another parameter or by an
//     arbitrary expression of a compatible type. Untouched subtrees are shared.
//   - Compilation. Compile turns a Lambda into a closure that evaluates the
//     tree against a subject.
//   - Formatting. Format renders a tree as deterministic text.
//
// Functions are called through Call nodes. A fixed table of builtins covers
// the tests that translators know how to lower (see Builtin); NewFunc declares
// opaque user functions.
//
// # Parameters
//
// Every NewParam call yields a distinct variable. Two parameters with the same
// name and type are still different variables, so trees built independently
// never capture each other's parameters by accident. Combining two such trees
// means substituting one parameter for the other first.
package expr
