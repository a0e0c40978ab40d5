package engine

import (
	"log/slog"

	"github.com/RoaringBitmap/roaring"

	"github.com/roach88/cachegc/internal/store"
)

type nodeState uint8

const (
	unvisited nodeState = iota
	active              // on the Tarjan stack
	closed              // closure memoized
)

// frame is one level of the explicit DFS stack.
type frame struct {
	node uint32
	next int // position in References(node) of the next edge to follow
}

// traversal owns all mutable state of a closure computation.
type traversal struct {
	st     *store.Store
	policy MissingPolicy
	log    *slog.Logger

	pending *roaring.Bitmap     // work queue
	memo    []*roaring.Bitmap   // index → closure, shared within a component
	missing map[string]struct{} // unknown identifiers already reported

	state   []nodeState
	order   []uint32 // Tarjan discovery order
	low     []uint32 // Tarjan lowlink
	counter uint32

	frames    []frame
	component []uint32 // Tarjan stack of active nodes

	done     int
	onClosed func(done int)
	stats    Stats
}

func newTraversal(st *store.Store, policy MissingPolicy, log *slog.Logger, onClosed func(int)) *traversal {
	n := st.Len()
	return &traversal{
		st:       st,
		policy:   policy,
		log:      log,
		pending:  st.Universe(),
		memo:     make([]*roaring.Bitmap, n),
		missing:  make(map[string]struct{}),
		state:    make([]nodeState, n),
		order:    make([]uint32, n),
		low:      make([]uint32, n),
		onClosed: onClosed,
	}
}

// run closes root and everything reachable from it. It is a no-op for an
// object whose closure is already memoized.
func (t *traversal) run(root uint32) error {
	if t.state[root] != unvisited {
		return nil
	}
	if err := t.enter(root); err != nil {
		return err
	}

	for len(t.frames) > 0 {
		top := len(t.frames) - 1
		f := &t.frames[top]
		refs := t.st.References(f.node)

		if f.next < len(refs) {
			w := refs[f.next]
			f.next++
			if w == f.node {
				continue // self reference
			}
			switch t.state[w] {
			case unvisited:
				if err := t.enter(w); err != nil {
					return err
				}
			case active:
				// Back edge into the current component.
				if t.order[w] < t.low[f.node] {
					t.low[f.node] = t.order[w]
				}
			}
			continue
		}

		// All references of v visited.
		v := f.node
		t.frames = t.frames[:top]
		if top > 0 {
			parent := t.frames[top-1].node
			if t.low[v] < t.low[parent] {
				t.low[parent] = t.low[v]
			}
		}
		if t.low[v] == t.order[v] {
			t.closeComponent(v)
		}
	}
	return nil
}

// enter pushes v onto both stacks and takes it off the work queue.
func (t *traversal) enter(v uint32) error {
	if err := t.checkDangling(v); err != nil {
		return err
	}

	t.pending.Remove(v)
	t.state[v] = active
	t.order[v] = t.counter
	t.low[v] = t.counter
	t.counter++
	t.component = append(t.component, v)
	t.frames = append(t.frames, frame{node: v})
	if len(t.frames) > t.stats.MaxDepth {
		t.stats.MaxDepth = len(t.frames)
	}
	return nil
}

// checkDangling applies the missing policy to v's references outside the
// universe.
func (t *traversal) checkDangling(v uint32) error {
	for _, id := range t.st.Dangling(v) {
		if t.policy == MissingAbort {
			return NewMissingReferenceError(id, t.st.ID(v))
		}
		t.stats.Dangling++
		t.missing[id] = struct{}{}
		t.log.Warn("dangling reference, treating its closure as empty",
			"id", id,
			"referrer", t.st.ID(v),
		)
	}
	return nil
}

// closeComponent pops the component rooted at v and memoizes its closure.
//
// Every reference of a member either stays inside the component (still
// active) or points at a component closed earlier, whose closure is
// already in the memo.
func (t *traversal) closeComponent(v uint32) {
	i := len(t.component) - 1
	for t.component[i] != v {
		i--
	}
	members := t.component[i:]

	set := roaring.New()
	var last *roaring.Bitmap
	for _, m := range members {
		set.Add(m)
		for _, r := range t.st.References(m) {
			if t.state[r] != closed {
				continue
			}
			if bm := t.memo[r]; bm != last {
				set.Or(bm)
				last = bm
			}
		}
	}
	set.RunOptimize()

	t.stats.Components++
	if len(members) > 1 {
		t.stats.CyclicComponents++
		t.log.Warn("reference cycle between store objects",
			"members", len(members),
			"id", t.st.ID(v),
		)
	}
	if len(members) > t.stats.LargestComponent {
		t.stats.LargestComponent = len(members)
	}

	for _, m := range members {
		t.memo[m] = set
		t.state[m] = closed
		t.done++
		t.onClosed(t.done)
	}
	t.component = t.component[:i]
}
