package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cachegc/internal/store"
	"github.com/roach88/cachegc/internal/storepath"
	"github.com/roach88/cachegc/internal/testutil"
)

func buildStore(records ...storepath.Record) *store.Store {
	return store.Build(records, store.Config{
		Canonicalizer: storepath.Default(),
		Logger:        testutil.DiscardLogger(),
	})
}

func newTestEngine(st *store.Store) *Engine {
	return New(st, Options{Logger: testutil.DiscardLogger()})
}

func hashes(cs ...byte) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = testutil.Hash(c)
	}
	return out
}

func closureIDs(t *testing.T, e *Engine, c byte) []string {
	t.Helper()
	out, err := e.ClosureOf(testutil.Path(c))
	require.NoError(t, err)
	require.Equal(t, Resolved, out.Kind)
	return out.Closure.IDs()
}

func TestClosureOf_Chain(t *testing.T) {
	st := buildStore(
		testutil.Record('a', 1, 'b'),
		testutil.Record('b', 1, 'c'),
		testutil.Record('c', 1),
	)
	e := newTestEngine(st)

	assert.Equal(t, hashes('a', 'b', 'c'), closureIDs(t, e, 'a'))
	assert.Equal(t, hashes('b', 'c'), closureIDs(t, e, 'b'))
	assert.Equal(t, hashes('c'), closureIDs(t, e, 'c'))
}

func TestClosureOf_IncludesSelf(t *testing.T) {
	st := buildStore(testutil.Record('a', 1))
	e := newTestEngine(st)

	out, err := e.ClosureOf(testutil.Hash('a'))
	require.NoError(t, err)
	assert.Equal(t, testutil.Hash('a'), out.ID)
	assert.True(t, out.Closure.Contains(testutil.Path('a')))
	assert.Equal(t, 1, out.Closure.Len())
}

func TestClosureOf_SelfLoop(t *testing.T) {
	st := buildStore(
		testutil.Record('a', 1, 'a', 'b'),
		testutil.Record('b', 1),
	)
	e := newTestEngine(st)

	assert.Equal(t, hashes('a', 'b'), closureIDs(t, e, 'a'))
	assert.Equal(t, 0, e.Stats().CyclicComponents, "self reference is not a cycle")
}

func TestClosureOf_Diamond(t *testing.T) {
	st := buildStore(
		testutil.Record('a', 1, 'b', 'c'),
		testutil.Record('b', 1, 'd'),
		testutil.Record('c', 1, 'd'),
		testutil.Record('d', 1),
	)
	e := newTestEngine(st)

	assert.Equal(t, hashes('a', 'b', 'c', 'd'), closureIDs(t, e, 'a'))
	assert.Equal(t, hashes('c', 'd'), closureIDs(t, e, 'c'))
}

func TestClosureOf_MutualCycle(t *testing.T) {
	records := []storepath.Record{
		testutil.Record('a', 1, 'b'),
		testutil.Record('b', 1, 'a', 'd'),
		testutil.Record('c', 1, 'a'),
		testutil.Record('d', 1),
	}

	for _, start := range []byte{'a', 'b', 'c'} {
		t.Run("start "+string(start), func(t *testing.T) {
			e := newTestEngine(buildStore(records...))
			_ = closureIDs(t, e, start)

			assert.Equal(t, hashes('a', 'b', 'd'), closureIDs(t, e, 'a'))
			assert.Equal(t, hashes('a', 'b', 'd'), closureIDs(t, e, 'b'))
			assert.Equal(t, hashes('a', 'b', 'c', 'd'), closureIDs(t, e, 'c'))
			assert.Equal(t, 1, e.Stats().CyclicComponents)
			assert.Equal(t, 2, e.Stats().LargestComponent)
		})
	}
}

func TestClosureOf_CycleLogsWarning(t *testing.T) {
	log, buf := testutil.CaptureLogger()
	st := buildStore(
		testutil.Record('a', 1, 'b'),
		testutil.Record('b', 1, 'a'),
	)
	e := New(st, Options{Logger: log})

	_, err := e.ComputeAll()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "reference cycle between store objects")
	assert.Contains(t, buf.String(), "members=2")
}

func TestClosureOf_DanglingSkip(t *testing.T) {
	log, buf := testutil.CaptureLogger()
	st := buildStore(
		testutil.Record('a', 1, 'b', 'z'),
		testutil.Record('b', 1),
	)
	e := New(st, Options{MissingPolicy: MissingSkip, Logger: log})

	out, err := e.ClosureOf(testutil.Path('a'))
	require.NoError(t, err)
	assert.Equal(t, hashes('a', 'b'), out.Closure.IDs())
	assert.Equal(t, 1, e.Stats().Dangling)
	assert.Contains(t, buf.String(), "dangling reference")
	assert.Contains(t, buf.String(), testutil.Hash('z'))
}

func TestClosureOf_DanglingAbort(t *testing.T) {
	st := buildStore(
		testutil.Record('a', 1, 'b'),
		testutil.Record('b', 1, 'z'),
	)
	e := New(st, Options{MissingPolicy: MissingAbort, Logger: testutil.DiscardLogger()})

	_, err := e.ClosureOf(testutil.Path('a'))
	require.Error(t, err)
	assert.True(t, IsMissingReference(err))

	var ce *ClosureError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, testutil.Hash('z'), ce.ID)
	assert.Equal(t, testutil.Hash('b'), ce.Referrer)
	assert.Contains(t, err.Error(), testutil.Hash('z'))

	// The traversal state is not reused after a fatal error.
	_, err = e.ComputeAll()
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeAborted, ce.Code)
}

func TestClosureOf_UnknownID(t *testing.T) {
	st := buildStore(testutil.Record('a', 1))

	t.Run("skip", func(t *testing.T) {
		log, buf := testutil.CaptureLogger()
		e := New(st, Options{Logger: log})

		out, err := e.ClosureOf(testutil.Path('z'))
		require.NoError(t, err)
		assert.Equal(t, Missing, out.Kind)
		assert.Equal(t, testutil.Hash('z'), out.ID)
		assert.Equal(t, 0, out.Closure.Len())
		assert.Empty(t, out.Closure.IDs())

		_, err = e.ClosureOf(testutil.Hash('z'))
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(buf.String(), "unknown store object"), "warned once per identifier")
	})

	t.Run("abort", func(t *testing.T) {
		e := New(st, Options{MissingPolicy: MissingAbort, Logger: testutil.DiscardLogger()})

		_, err := e.ClosureOf(testutil.Path('z'))
		require.Error(t, err)
		assert.True(t, IsMissingReference(err))
		assert.NotContains(t, err.Error(), "referenced by")
	})
}

func TestComputeAll_OrderIndependent(t *testing.T) {
	records := []storepath.Record{
		testutil.Record('a', 1, 'b', 'e'),
		testutil.Record('b', 1, 'c'),
		testutil.Record('c', 1, 'b', 'd'),
		testutil.Record('d', 1),
		testutil.Record('e', 1, 'e'),
		testutil.Record('f', 1, 'a', 'c'),
	}

	e := newTestEngine(buildStore(records...))
	all, err := e.ComputeAll()
	require.NoError(t, err)
	require.Equal(t, len(records), all.Len())

	orders := [][]byte{
		{'a', 'b', 'c', 'd', 'e', 'f'},
		{'f', 'e', 'd', 'c', 'b', 'a'},
		{'c', 'a', 'f', 'd', 'b', 'e'},
	}
	for _, order := range orders {
		t.Run(string(order), func(t *testing.T) {
			lazy := newTestEngine(buildStore(records...))
			for _, c := range order {
				want, ok := all.Get(testutil.Hash(c))
				require.True(t, ok)
				assert.Equal(t, want.IDs(), closureIDs(t, lazy, c), "closure of %c", c)
			}
		})
	}
}

func TestComputeAll_ReferencesAreSubsets(t *testing.T) {
	st := buildStore(
		testutil.Record('a', 1, 'b', 'c'),
		testutil.Record('b', 1, 'c', 'd'),
		testutil.Record('c', 1, 'b'),
		testutil.Record('d', 1),
		testutil.Record('e', 1, 'a', 'z'),
	)
	all, err := newTestEngine(st).ComputeAll()
	require.NoError(t, err)

	for idx := uint32(0); idx < uint32(st.Len()); idx++ {
		parent, ok := all.GetIndex(idx)
		require.True(t, ok)
		assert.True(t, parent.ContainsIndex(idx), "%s must contain itself", st.ID(idx))
		for _, ref := range st.References(idx) {
			child, ok := all.GetIndex(ref)
			require.True(t, ok)
			assert.True(t, parent.Bitmap().Contains(ref))
			for _, id := range child.IDs() {
				assert.True(t, parent.Contains(id), "%s reaches %s", st.ID(idx), id)
			}
		}
	}
}

func TestComputeAll_DrainsQueue(t *testing.T) {
	st := buildStore(
		testutil.Record('a', 1, 'b'),
		testutil.Record('b', 1),
		testutil.Record('c', 1),
	)
	e := newTestEngine(st)
	assert.Equal(t, 3, e.Pending())

	_ = closureIDs(t, e, 'a')
	assert.Equal(t, 1, e.Pending())
	assert.Equal(t, 2, e.Done())

	_, err := e.ComputeAll()
	require.NoError(t, err)
	assert.Equal(t, 0, e.Pending())
	assert.Equal(t, 3, e.Done())
}

func TestComputeAll_LongChainUsesExplicitStack(t *testing.T) {
	const n = 100000
	id := func(i int) string { return fmt.Sprintf("%032d", i) }

	records := make([]storepath.Record, n)
	for i := 0; i < n; i++ {
		rec := storepath.Record{Path: storepath.DefaultStoreDir + "/" + id(i) + "-link"}
		if i+1 < n {
			rec.References = []string{id(i + 1)}
		}
		records[i] = rec
	}
	st := buildStore(records...)

	all, err := newTestEngine(st).ComputeAll()
	require.NoError(t, err)

	head, ok := all.Get(id(0))
	require.True(t, ok)
	assert.Equal(t, n, head.Len())
	tail, ok := all.Get(id(n - 1))
	require.True(t, ok)
	assert.Equal(t, 1, tail.Len())
	assert.Equal(t, n, all.Stats().MaxDepth)
}

func TestComputeAll_Progress(t *testing.T) {
	const n = 2500
	records := make([]storepath.Record, n)
	for i := range records {
		records[i] = storepath.Record{Path: fmt.Sprintf("%032d", i)}
	}

	var calls [][2]int
	e := New(buildStore(records...), Options{
		Logger:        testutil.DiscardLogger(),
		ProgressEvery: 1000,
		Progress: func(done, total int) {
			calls = append(calls, [2]int{done, total})
		},
	})

	_, err := e.ComputeAll()
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1000, n}, {2000, n}, {2500, n}}, calls)
}

func TestComputeAll_Empty(t *testing.T) {
	all, err := newTestEngine(buildStore()).ComputeAll()
	require.NoError(t, err)
	assert.Equal(t, 0, all.Len())

	_, ok := all.Get(testutil.Hash('a'))
	assert.False(t, ok)
}

func TestParseMissingPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    MissingPolicy
		wantErr bool
	}{
		{"", MissingSkip, false},
		{"skip", MissingSkip, false},
		{"abort", MissingAbort, false},
		{"ignore", MissingSkip, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMissingPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.in != "" {
				assert.Equal(t, tt.in, got.String())
			}
		})
	}
}
