package engine

import (
	"log/slog"

	"github.com/RoaringBitmap/roaring"

	"github.com/roach88/cachegc/internal/store"
)

// DefaultProgressEvery is how many completed closures pass between
// progress callbacks when Options.ProgressEvery is zero.
const DefaultProgressEvery = 1000

// Stats describes the shape of the graph seen by the traversal.
type Stats struct {
	Components       int // strongly connected components closed
	CyclicComponents int // components with two or more members
	LargestComponent int // members in the largest component
	Dangling         int // references to identifiers outside the universe
	MaxDepth         int // deepest explicit stack reached
}

// Options configures an Engine.
type Options struct {
	// MissingPolicy applies to every unknown identifier in the run.
	MissingPolicy MissingPolicy

	// Progress, if set, is called with the number of completed closures
	// and the universe size. It never influences the result.
	Progress func(done, total int)

	// ProgressEvery sets the callback interval. Default: DefaultProgressEvery.
	ProgressEvery int

	// Logger receives warnings about dangling references and cycles.
	// Default: slog.Default().
	Logger *slog.Logger
}

// Engine computes and memoizes closures for one store.
type Engine struct {
	st   *store.Store
	opts Options
	log  *slog.Logger
	t    *traversal

	lastProgress int
	err          error
}

// New creates an engine over st. The work queue starts with the whole
// universe and the memo starts empty.
func New(st *store.Store, opts Options) *Engine {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	e := &Engine{
		st:   st,
		opts: opts,
		log:  log,
	}
	e.t = newTraversal(st, opts.MissingPolicy, log, e.onClosed)
	return e
}

// ClosureOf returns the closure of id (either form).
//
// A memoized closure is returned without further work. Otherwise the
// walk starts at id and closes every object it reaches, removing them
// from the work queue. Unknown identifiers yield a Missing outcome under
// MissingSkip and a *ClosureError under MissingAbort.
func (e *Engine) ClosureOf(id string) (Outcome, error) {
	if e.err != nil {
		return Outcome{}, newAbortedError(e.err)
	}

	canonical := e.st.Canonical(id)
	idx, ok := e.st.Index(canonical)
	if !ok {
		return e.missingOutcome(canonical)
	}

	if err := e.t.run(idx); err != nil {
		e.err = err
		return Outcome{}, err
	}

	return Outcome{
		Kind:    Resolved,
		ID:      canonical,
		Closure: &Closure{set: e.t.memo[idx], st: e.st},
	}, nil
}

// ComputeAll drains the work queue, computing a closure for every object
// in the universe. Objects are popped lowest index first; the result does
// not depend on that order.
func (e *Engine) ComputeAll() (*Closures, error) {
	if e.err != nil {
		return nil, newAbortedError(e.err)
	}

	for !e.t.pending.IsEmpty() {
		if err := e.t.run(e.t.pending.Minimum()); err != nil {
			e.err = err
			return nil, err
		}
	}

	if e.opts.Progress != nil && e.lastProgress != e.t.done {
		e.lastProgress = e.t.done
		e.opts.Progress(e.t.done, e.st.Len())
	}

	stats := e.t.stats
	e.log.Info("closures computed",
		"objects", e.st.Len(),
		"components", stats.Components,
		"cyclic_components", stats.CyclicComponents,
		"largest_component", stats.LargestComponent,
		"dangling", stats.Dangling,
		"max_depth", stats.MaxDepth,
	)

	return &Closures{st: e.st, memo: e.t.memo, stats: stats}, nil
}

// Pending returns the number of objects still in the work queue.
func (e *Engine) Pending() int {
	return int(e.t.pending.GetCardinality())
}

// Done returns the number of objects with a memoized closure.
func (e *Engine) Done() int {
	return e.t.done
}

// Stats returns the traversal statistics gathered so far.
func (e *Engine) Stats() Stats {
	return e.t.stats
}

func (e *Engine) missingOutcome(canonical string) (Outcome, error) {
	if e.opts.MissingPolicy == MissingAbort {
		return Outcome{}, NewMissingReferenceError(canonical, "")
	}
	if _, seen := e.t.missing[canonical]; !seen {
		e.t.missing[canonical] = struct{}{}
		e.log.Warn("unknown store object, treating its closure as empty", "id", canonical)
	}
	return Outcome{
		Kind:    Missing,
		ID:      canonical,
		Closure: &Closure{set: roaring.New(), st: e.st},
	}, nil
}

func (e *Engine) onClosed(done int) {
	if e.opts.Progress == nil {
		return
	}
	if done-e.lastProgress >= e.opts.ProgressEvery {
		e.lastProgress = done
		e.opts.Progress(done, e.st.Len())
	}
}
