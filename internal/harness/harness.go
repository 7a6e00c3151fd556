package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/codepb/fluentqueries/internal/definition"
	"github.com/codepb/fluentqueries/internal/store"
	"github.com/codepb/fluentqueries/pkg/ir"
	"github.com/codepb/fluentqueries/pkg/query"
)

// recordTable is the table portable assertions import records into.
const recordTable = "records"

// Harness is the test execution engine for one scenario.
type Harness struct {
	registry *query.Registry[definition.Record]
	records  []map[string]any
	store    *store.Store
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result. A nil logger
// discards log output.
//
// Execution flow:
// 1. Load the definition files into a fresh registry
// 2. Evaluate every query against every record, in memory
// 3. Evaluate assertions; portable assertions use an in-memory SQLite store
// 4. Return result with pass/fail, outcomes, and errors
func Run(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	reg, err := definition.Load(scenario.Defs...)
	if err != nil {
		return nil, fmt.Errorf("failed to load definitions: %w", err)
	}

	h := &Harness{
		registry: reg,
		records:  scenario.Records,
		logger:   logger,
	}
	defer h.close()

	result := NewResult()
	for _, name := range reg.Names() {
		q, _ := reg.Lookup(name)
		outcome := h.evaluate(name, q)
		result.Outcomes = append(result.Outcomes, outcome)

		h.logger.Debug("query evaluated",
			"scenario", scenario.Name,
			"query", name,
			"matched", len(outcome.Matched),
			"error", outcome.Error,
		)
	}

	actx := &AssertionContext{
		Ctx:      ctx,
		Registry: reg,
		Store:    h.sqlStore,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// evaluate runs q over the scenario records. Evaluation stops at the first
// record that fails.
func (h *Harness) evaluate(name string, q query.Query[definition.Record]) Outcome {
	out := Outcome{Query: name, Matched: []int{}}

	if doc, err := ir.Encode(q.AsExpression()); err == nil {
		if fp, err := ir.Fingerprint(doc); err == nil {
			out.Fingerprint = fp
		}
	}

	for i, rec := range h.records {
		ok, err := q.IsSatisfiedBy(rec)
		if err != nil {
			out.Error = fmt.Sprintf("record %d: %v", i, err)
			break
		}
		if ok {
			out.Matched = append(out.Matched, i)
		}
	}
	return out
}

// sqlStore returns the scenario records in SQLite, importing them on first
// use.
func (h *Harness) sqlStore(ctx context.Context) (*store.Store, error) {
	if h.store != nil {
		return h.store, nil
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	if err := st.Import(ctx, recordTable, h.records); err != nil {
		st.Close()
		return nil, err
	}
	h.logger.Debug("records imported", "rows", len(h.records))

	h.store = st
	return st, nil
}

func (h *Harness) close() {
	if h.store != nil {
		h.store.Close()
	}
}
