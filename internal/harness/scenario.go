package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios load query definitions, evaluate every query against a fixed
// record set and assert on which records each query selects.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Defs lists definition files or directories to load.
	// Paths are relative to the scenario file location.
	Defs []string `yaml:"defs"`

	// Records is the record set every query is evaluated against.
	Records []map[string]any `yaml:"records"`

	// Assertions validate the outcomes.
	// Supported types: matches, count, fails, portable, same_fingerprint
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the outcome of one or more queries.
type Assertion struct {
	// Type specifies the assertion type:
	// - "matches": Query selects exactly Records (0-based, in order)
	// - "count": Query selects exactly Count records
	// - "fails": evaluating Query fails on some record
	// - "portable": Query selects the same records in SQLite as in memory
	// - "same_fingerprint": all of Queries share one fingerprint
	Type string `yaml:"type"`

	// Query is the query name (used by all but same_fingerprint).
	Query string `yaml:"query,omitempty"`

	// Records are the expected record indices (used by matches).
	Records []int `yaml:"records,omitempty"`

	// Count is the expected number of matches (used by count).
	Count int `yaml:"count,omitempty"`

	// Queries are the query names compared by same_fingerprint.
	Queries []string `yaml:"queries,omitempty"`
}

// Assertion type constants.
const (
	AssertMatches         = "matches"
	AssertCount           = "count"
	AssertFails           = "fails"
	AssertPortable        = "portable"
	AssertSameFingerprint = "same_fingerprint"
)

// LoadScenario reads and parses a scenario YAML file, resolving definition
// paths relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, p := range scenario.Defs {
		if !filepath.IsAbs(p) {
			scenario.Defs[i] = filepath.Join(base, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	// YAML decodes integers as int where JSON records carry float64.
	if scenario.Records, err = normalizeRecords(scenario.Records); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Defs) == 0 {
		return fmt.Errorf("defs list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, p := range s.Defs {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("definition path not found: %s", p)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, len(s.Records)); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, records int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertMatches:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for matches", index)
		}
		for _, r := range a.Records {
			if r < 0 || r >= records {
				return fmt.Errorf("assertions[%d]: record %d out of range (have %d)", index, r, records)
			}
		}
	case AssertCount:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertFails, AssertPortable:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for %s", index, a.Type)
		}
	case AssertSameFingerprint:
		if len(a.Queries) < 2 {
			return fmt.Errorf("assertions[%d]: at least two queries are required for same_fingerprint", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// normalizeRecords gives records the shape they have when read from JSON.
func normalizeRecords(records []map[string]any) ([]map[string]any, error) {
	if len(records) == 0 {
		return []map[string]any{}, nil
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}
	return out, nil
}
