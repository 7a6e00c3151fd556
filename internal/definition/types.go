// Package definition loads named queries over dynamic records from YAML or
// CUE files.
//
// A definition file lists queries by name. Each query has a where condition
// that is either a leaf test on a field or a group:
//
//	queries:
//	  - name: adult-gophers
//	    where:
//	      all:
//	        - {field: Age, op: greaterThanOrEqualTo, value: 18}
//	        - field: Tags
//	          op: withAny
//	          element: {op: startingWith, value: g}
//
// The same file in CUE:
//
//	queries: "adult-gophers": where: all: [
//		{field: "Age", op: "greaterThanOrEqualTo", value: 18},
//		{field: "Tags", op: "withAny", element: {op: "startingWith", value: "g"}},
//	]
//
// Conditions are compiled with the typed builders of package query: the
// static type of each selected field follows from the operator and the
// literal it is compared with.
package definition

import (
	"fmt"

	"cuelang.org/go/cue/token"
)

// Record is the subject type of loaded queries: a decoded JSON object.
type Record = map[string]any

// File is the decoded content of a definition file.
type File struct {
	Queries []Spec `yaml:"queries" json:"queries"`
}

// Spec names one query.
type Spec struct {
	// Name is unique across every loaded file.
	Name string `yaml:"name" json:"name"`

	// Description is free text shown by the CLI.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Where is the condition records must meet.
	Where Condition `yaml:"where" json:"where"`
}

// Condition is a leaf test (Op) or a group (All, Any, Not). Exactly one of
// them is set.
type Condition struct {
	// Field is a dotted member path, e.g. "Address.City". Empty selects the
	// subject itself, which is only meaningful for sequence elements.
	Field string `yaml:"field,omitempty" json:"field,omitempty"`

	// Op is one of the Op* constants.
	Op string `yaml:"op,omitempty" json:"op,omitempty"`

	// Value is the literal for single-value operators.
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// Values is the literal list for equalToAnyOf and the sequence
	// comparisons.
	Values []any `yaml:"values,omitempty" json:"values,omitempty"`

	// Element is the element condition for withAny, withoutAny, withAll
	// and withNotAll.
	Element *Condition `yaml:"element,omitempty" json:"element,omitempty"`

	All []Condition `yaml:"all,omitempty" json:"all,omitempty"`
	Any []Condition `yaml:"any,omitempty" json:"any,omitempty"`
	Not *Condition  `yaml:"not,omitempty" json:"not,omitempty"`
}

// Operators. The names follow the builder methods they compile to.
const (
	OpEqualTo         = "equalTo"
	OpNotEqualTo      = "notEqualTo"
	OpEqualToAnyOf    = "equalToAnyOf"
	OpNotEqualToAnyOf = "notEqualToAnyOf"
	OpNull            = "null"
	OpNotNull         = "notNull"

	OpLessThan             = "lessThan"
	OpLessThanOrEqualTo    = "lessThanOrEqualTo"
	OpGreaterThan          = "greaterThan"
	OpGreaterThanOrEqualTo = "greaterThanOrEqualTo"

	OpContaining          = "containing"
	OpNotContaining       = "notContaining"
	OpStartingWith        = "startingWith"
	OpNotStartingWith     = "notStartingWith"
	OpEndingWith          = "endingWith"
	OpNotEndingWith       = "notEndingWith"
	OpNullOrEmpty         = "nullOrEmpty"
	OpNotNullOrEmpty      = "notNullOrEmpty"
	OpNullOrWhitespace    = "nullOrWhitespace"
	OpNotNullOrWhitespace = "notNullOrWhitespace"

	OpTrue  = "true"
	OpFalse = "false"

	OpIncludes           = "includes"
	OpExcludes           = "excludes"
	OpEmpty              = "empty"
	OpNotEmpty           = "notEmpty"
	OpWithAny            = "withAny"
	OpWithoutAny         = "withoutAny"
	OpWithAll            = "withAll"
	OpWithNotAll         = "withNotAll"
	OpEqualToSequence    = "equalToSequence"
	OpNotEqualToSequence = "notEqualToSequence"
)

// Error locates a failure in a definition file.
type Error struct {
	File  string
	Query string
	Pos   token.Pos // CUE position if available
	Err   error
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %v", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Err)
	}
	switch {
	case e.File != "" && e.Query != "":
		return fmt.Sprintf("%s: query %s: %v", e.File, e.Query, e.Err)
	case e.File != "":
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	case e.Query != "":
		return fmt.Sprintf("query %s: %v", e.Query, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }
