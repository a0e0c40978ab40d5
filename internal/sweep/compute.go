package sweep

import (
	"time"

	"github.com/roach88/cachegc/internal/engine"
	"github.com/roach88/cachegc/internal/retention"
	"github.com/roach88/cachegc/internal/store"
)

// Options configures Compute.
type Options struct {
	// RetentionDays is the window length; it must already be validated
	// (see retention.ParseDays).
	RetentionDays int

	// Now returns the reference time. Default: time.Now.
	Now func() time.Time

	// Engine configures the closure engine.
	Engine engine.Options
}

// Result is a plan together with how it was derived.
type Result struct {
	Plan            *Plan
	Cutoff          int64
	Closures        *engine.Closures
	ClosureDuration time.Duration
}

// Compute runs the whole pass over st: every closure, root selection,
// then assembly.
func Compute(st *store.Store, opts Options) (*Result, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cutoff := retention.Cutoff(now(), opts.RetentionDays)

	start := time.Now()
	closures, err := engine.New(st, opts.Engine).ComputeAll()
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	plan, err := Assemble(st, retention.SelectRoots(st, cutoff), closures)
	if err != nil {
		return nil, err
	}

	return &Result{
		Plan:            plan,
		Cutoff:          cutoff,
		Closures:        closures,
		ClosureDuration: elapsed,
	}, nil
}
