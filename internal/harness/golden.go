package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/codepb/fluentqueries/pkg/ir"
)

// Snapshot renders the outcomes of a scenario as canonical JSON. The output
// is byte-identical across runs for identical outcomes. Fingerprints are
// left out; same_fingerprint assertions cover them.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	outcomes := make([]any, len(result.Outcomes))
	for i, o := range result.Outcomes {
		matched := make([]any, len(o.Matched))
		for j, m := range o.Matched {
			matched[j] = m
		}
		entry := map[string]any{
			"query":   o.Query,
			"matched": matched,
		}
		if o.Error != "" {
			entry["error"] = o.Error
		}
		outcomes[i] = entry
	}

	v, err := ir.FromGo(map[string]any{
		"scenario_name": scenarioName,
		"outcomes":      outcomes,
	})
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(v)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, nil)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's snapshot against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
