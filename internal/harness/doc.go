// Package harness provides conformance testing for query definitions.
//
// The harness loads definition files, evaluates every query they define
// against a fixed record set and checks the outcomes against assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	defs:
//	  - ../queries.yaml
//	records:
//	  - {Name: Ada, Age: 36}
//	  - {Name: Zoë, Age: 17}
//	assertions:
//	  - type: matches
//	    query: adults
//	    records: [0]
//	  - type: portable
//	    query: adults
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - matches: the query selects exactly the listed record indices
//   - count: the query selects exactly N records
//   - fails: evaluating the query fails on some record
//   - portable: the query selects the same records when run in SQLite
//   - same_fingerprint: the listed queries have one fingerprint
//
// # Golden Snapshots
//
// Snapshot renders the outcomes of a run as canonical JSON, so a snapshot
// only changes when a query selects different records or starts failing.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/people.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
