package harness

import (
	"github.com/roach88/cachegc/internal/report"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every closure expectation and assertion held.
	Pass bool `json:"pass"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// RetentionDays is the window actually used after parsing.
	RetentionDays int `json:"retention_days"`

	// Cutoff is the derived registration-time cutoff.
	Cutoff int64 `json:"cutoff"`

	// Plan is the computed plan; nil when the run failed.
	Plan *report.PlanResult `json:"plan,omitempty"`

	// Closures holds the computed closure of every id the scenario
	// has a closure expectation for.
	Closures map[string][]string `json:"closures,omitempty"`

	// Failure is the error that stopped the run, if any.
	Failure error `json:"-"`

	// Log is the captured log output of the run.
	Log string `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Errors:   []string{},
		Closures: make(map[string][]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
