package engine

import "fmt"

// MissingPolicy decides what a reference outside the universe means.
// One policy applies to the whole run.
type MissingPolicy int

const (
	// MissingSkip treats an unknown object as contributing an empty
	// closure and logs a warning. Closures of its referrers may be
	// undercounted.
	MissingSkip MissingPolicy = iota

	// MissingAbort fails the whole computation with an error naming the
	// unknown identifier.
	MissingAbort
)

// String returns the configuration spelling of the policy.
func (p MissingPolicy) String() string {
	switch p {
	case MissingSkip:
		return "skip"
	case MissingAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// ParseMissingPolicy converts "skip" or "abort" to a MissingPolicy.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch s {
	case "skip", "":
		return MissingSkip, nil
	case "abort":
		return MissingAbort, nil
	default:
		return MissingSkip, fmt.Errorf("invalid missing policy %q: must be skip or abort", s)
	}
}
