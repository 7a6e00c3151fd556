package harness

// Outcome is what evaluating one query against the scenario records produced.
type Outcome struct {
	Query       string `json:"query"`
	Fingerprint string `json:"fingerprint,omitempty"`

	// Matched holds the indices of the selected records, in order.
	Matched []int `json:"matched"`

	// Error is set when evaluation failed; Matched then stops at the
	// failing record.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Outcomes holds one entry per defined query, ordered by name.
	Outcomes []Outcome `json:"outcomes"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Outcomes: []Outcome{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Outcome returns the outcome of the named query.
func (r *Result) Outcome(name string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Query == name {
			return o, true
		}
	}
	return Outcome{}, false
}
