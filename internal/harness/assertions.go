package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/codepb/fluentqueries/internal/definition"
	"github.com/codepb/fluentqueries/internal/store"
	"github.com/codepb/fluentqueries/pkg/query"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Query    string // Query the assertion is about, if any
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Query != "" {
		fmt.Fprintf(&buf, " (query %s)", e.Query)
	}
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Ctx      context.Context
	Registry *query.Registry[definition.Record]

	// Store returns the scenario records in SQLite.
	Store func(ctx context.Context) (*store.Store, error)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for portable assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSameFingerprint:
			err = assertSameFingerprint(result, assertion)
		case AssertMatches, AssertCount, AssertFails, AssertPortable:
			outcome, ok := result.Outcome(assertion.Query)
			if !ok {
				err = &AssertionError{
					Type:     assertion.Type,
					Query:    assertion.Query,
					Expected: "query to be defined",
					Actual:   "query not found",
				}
				break
			}
			switch assertion.Type {
			case AssertMatches:
				err = assertMatches(outcome, assertion)
			case AssertCount:
				err = assertCount(outcome, assertion)
			case AssertFails:
				err = assertFails(outcome)
			default:
				if actx == nil || actx.Store == nil || actx.Registry == nil {
					err = fmt.Errorf("assertion[%d]: portable requires database context", i)
				} else {
					err = assertPortable(actx, outcome)
				}
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// evaluated reports an outcome whose evaluation failed as an assertion
// failure, since no match set exists to compare.
func evaluated(outcome Outcome, typ, expected string) error {
	if outcome.Error == "" {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Query:    outcome.Query,
		Expected: expected,
		Actual:   "evaluation failed: " + outcome.Error,
	}
}

// assertMatches checks the query selected exactly the listed records.
func assertMatches(outcome Outcome, assertion Assertion) error {
	expected := fmt.Sprintf("records %v", orEmpty(assertion.Records))
	if err := evaluated(outcome, AssertMatches, expected); err != nil {
		return err
	}

	if !slices.Equal(outcome.Matched, assertion.Records) {
		return &AssertionError{
			Type:     AssertMatches,
			Query:    outcome.Query,
			Expected: expected,
			Actual:   fmt.Sprintf("records %v", outcome.Matched),
		}
	}
	return nil
}

// assertCount checks the query selected exactly the specified number of
// records.
func assertCount(outcome Outcome, assertion Assertion) error {
	expected := fmt.Sprintf("%d match(es)", assertion.Count)
	if err := evaluated(outcome, AssertCount, expected); err != nil {
		return err
	}

	if len(outcome.Matched) != assertion.Count {
		return &AssertionError{
			Type:     AssertCount,
			Query:    outcome.Query,
			Expected: expected,
			Actual:   fmt.Sprintf("%d match(es)", len(outcome.Matched)),
		}
	}
	return nil
}

// assertFails checks that evaluation failed on some record.
func assertFails(outcome Outcome) error {
	if outcome.Error == "" {
		return &AssertionError{
			Type:     AssertFails,
			Query:    outcome.Query,
			Expected: "evaluation failure",
			Actual:   fmt.Sprintf("records %v", outcome.Matched),
		}
	}
	return nil
}

// assertPortable runs the translated query in SQLite and compares the
// selected rows with the in-memory outcome.
func assertPortable(actx *AssertionContext, outcome Outcome) error {
	expected := fmt.Sprintf("records %v in SQLite", outcome.Matched)
	if err := evaluated(outcome, AssertPortable, expected); err != nil {
		return err
	}

	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := actx.Store(ctx)
	if err != nil {
		return &AssertionError{
			Type:     AssertPortable,
			Query:    outcome.Query,
			Expected: expected,
			Actual:   fmt.Sprintf("store error: %v", err),
		}
	}

	q, _ := actx.Registry.Lookup(outcome.Query)
	ids, err := st.Match(ctx, recordTable, q.AsExpression())
	if err != nil {
		return &AssertionError{
			Type:     AssertPortable,
			Query:    outcome.Query,
			Expected: expected,
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	// Row ids are 1-based record positions.
	got := make([]int, len(ids))
	for i, id := range ids {
		got[i] = id - 1
	}
	if !slices.Equal(got, outcome.Matched) {
		return &AssertionError{
			Type:     AssertPortable,
			Query:    outcome.Query,
			Expected: expected,
			Actual:   fmt.Sprintf("records %v in SQLite", got),
		}
	}
	return nil
}

// assertSameFingerprint checks that the listed queries share one
// fingerprint.
func assertSameFingerprint(result *Result, assertion Assertion) error {
	var first Outcome
	for i, name := range assertion.Queries {
		outcome, ok := result.Outcome(name)
		if !ok {
			return &AssertionError{
				Type:     AssertSameFingerprint,
				Query:    name,
				Expected: "query to be defined",
				Actual:   "query not found",
			}
		}
		if outcome.Fingerprint == "" {
			return &AssertionError{
				Type:     AssertSameFingerprint,
				Query:    name,
				Expected: "a fingerprint",
				Actual:   "query has no expression document",
			}
		}
		if i == 0 {
			first = outcome
			continue
		}
		if outcome.Fingerprint != first.Fingerprint {
			return &AssertionError{
				Type:     AssertSameFingerprint,
				Expected: fmt.Sprintf("%s and %s to share a fingerprint", first.Query, name),
				Actual:   fmt.Sprintf("%s != %s", first.Fingerprint, outcome.Fingerprint),
			}
		}
	}
	return nil
}

func orEmpty(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
