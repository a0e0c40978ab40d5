package engine

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/roach88/cachegc/internal/store"
)

// Closure is the set of objects transitively reachable from one object,
// the object itself included. Members of one strongly connected component
// share the same Closure value.
type Closure struct {
	set *roaring.Bitmap
	st  *store.Store
}

// Len returns the number of objects in the closure.
func (c *Closure) Len() int {
	return int(c.set.GetCardinality())
}

// Contains reports whether id (either form) is in the closure.
func (c *Closure) Contains(id string) bool {
	idx, ok := c.st.Index(id)
	return ok && c.set.Contains(idx)
}

// ContainsIndex reports whether the interned index is in the closure.
func (c *Closure) ContainsIndex(idx uint32) bool {
	return c.set.Contains(idx)
}

// IDs returns the canonical identifiers in the closure, sorted.
func (c *Closure) IDs() []string {
	ids := make([]string, 0, c.set.GetCardinality())
	it := c.set.Iterator()
	for it.HasNext() {
		ids = append(ids, c.st.ID(it.Next()))
	}
	return ids
}

// Bitmap returns the underlying index set. It is shared with the memo and
// must not be modified.
func (c *Closure) Bitmap() *roaring.Bitmap {
	return c.set
}

// OutcomeKind tags the result of a closure lookup.
type OutcomeKind int

const (
	// Resolved means the identifier is part of the universe.
	Resolved OutcomeKind = iota + 1
	// Missing means the identifier is unknown; its closure is empty.
	Missing
)

func (k OutcomeKind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case Missing:
		return "missing"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of ClosureOf.
type Outcome struct {
	Kind    OutcomeKind
	ID      string // canonical identifier that was looked up
	Closure *Closure
}

// Closures is the completed closure map for the whole universe.
type Closures struct {
	st    *store.Store
	memo  []*roaring.Bitmap
	stats Stats
}

// Get returns the closure of id (either form).
func (c *Closures) Get(id string) (*Closure, bool) {
	idx, ok := c.st.Index(id)
	if !ok {
		return nil, false
	}
	return c.GetIndex(idx)
}

// GetIndex returns the closure of an interned index.
func (c *Closures) GetIndex(idx uint32) (*Closure, bool) {
	if int(idx) >= len(c.memo) || c.memo[idx] == nil {
		return nil, false
	}
	return &Closure{set: c.memo[idx], st: c.st}, true
}

// Len returns the number of computed closures.
func (c *Closures) Len() int {
	n := 0
	for _, bm := range c.memo {
		if bm != nil {
			n++
		}
	}
	return n
}

// Stats returns traversal statistics.
func (c *Closures) Stats() Stats {
	return c.stats
}
