package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks closure expectations and assertions against
// a result and returns one message per failure.
func EvaluateAssertions(scenario *Scenario, result *Result) []string {
	var msgs []string

	expectsError := false
	for _, a := range scenario.Assertions {
		if a.Type == AssertError {
			expectsError = true
		}
	}
	if result.Failure != nil && !expectsError {
		msgs = append(msgs, fmt.Sprintf("unexpected run failure: %v", result.Failure))
	}

	if result.Failure == nil {
		for _, id := range sortedKeys(scenario.Closures) {
			want := slices.Sorted(slices.Values(scenario.Closures[id]))
			got, ok := result.Closures[id]
			if !ok {
				continue // reported by collectClosures
			}
			if !slices.Equal(want, got) {
				msgs = append(msgs, (&AssertionError{
					Type:     "closure " + id,
					Expected: fmt.Sprint(want),
					Actual:   fmt.Sprint(got),
				}).Error())
			}
		}
	}

	for _, a := range scenario.Assertions {
		if err := evaluate(a, result); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

func evaluate(a Assertion, result *Result) error {
	if a.Type == AssertError {
		code := ErrorCode(result.Failure)
		if code != a.Code {
			return &AssertionError{Type: a.Type, Expected: a.Code, Actual: orNone(code)}
		}
		return nil
	}
	if a.Type == AssertLogContains {
		if !strings.Contains(result.Log, a.Text) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%q in log", a.Text), Actual: "not logged"}
		}
		return nil
	}

	if result.Plan == nil {
		return &AssertionError{Type: a.Type, Expected: "a plan", Actual: "run failed"}
	}
	plan := result.Plan

	switch a.Type {
	case AssertDeleted:
		for _, id := range a.IDs {
			if _, found := slices.BinarySearch(plan.Delete, id); !found {
				return &AssertionError{Type: a.Type, Expected: id + " deleted", Actual: "kept"}
			}
		}
	case AssertKept:
		for _, id := range a.IDs {
			if _, found := slices.BinarySearch(plan.Delete, id); found {
				return &AssertionError{Type: a.Type, Expected: id + " kept", Actual: "deleted"}
			}
		}
	case AssertDeletableOrigins:
		want := slices.Sorted(slices.Values(a.Origins))
		if want == nil {
			want = []string{}
		}
		if !slices.Equal(want, plan.DeleteOrigins) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(want), Actual: fmt.Sprint(plan.DeleteOrigins)}
		}
	case AssertReclaimableBytes:
		if plan.ReclaimableBytes != a.Bytes {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Bytes), Actual: fmt.Sprint(plan.ReclaimableBytes)}
		}
	}
	return nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func orNone(s string) string {
	if s == "" {
		return "no error"
	}
	return s
}
