// Package sweep assembles the garbage set.
//
// Roots are marked by taking the union of their closures; every object
// outside that union is garbage. Physical deletion happens per origin
// (archive URL), which is coarser than objects: an origin is only
// deletable when no kept object uses it.
package sweep

import (
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring"

	"github.com/roach88/cachegc/internal/engine"
	"github.com/roach88/cachegc/internal/store"
)

// ErrRootWithoutClosure means a root has no computed closure. ComputeAll
// covers the whole universe, so this is a defect, never a data problem.
var ErrRootWithoutClosure = errors.New("root has no computed closure")

// Plan is the result of one assembly.
type Plan struct {
	st *store.Store

	// Roots are the retained objects.
	Roots *roaring.Bitmap

	// Keep is the union of the roots' closures.
	Keep *roaring.Bitmap

	// Delete is the universe minus Keep.
	Delete *roaring.Bitmap

	// DeletableOrigins maps each origin no kept object uses to its size.
	DeletableOrigins map[string]int64

	// ReclaimableBytes is the sum of DeletableOrigins.
	ReclaimableBytes int64
}

// Assemble computes keep and delete sets and the deletable origins.
func Assemble(st *store.Store, roots *roaring.Bitmap, closures *engine.Closures) (*Plan, error) {
	// Members of one component share a bitmap; union each only once.
	seen := make(map[*roaring.Bitmap]struct{})
	var sets []*roaring.Bitmap

	it := roots.Iterator()
	for it.HasNext() {
		idx := it.Next()
		c, ok := closures.GetIndex(idx)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRootWithoutClosure, st.ID(idx))
		}
		bm := c.Bitmap()
		if _, dup := seen[bm]; dup {
			continue
		}
		seen[bm] = struct{}{}
		sets = append(sets, bm)
	}

	keep := roaring.New()
	if len(sets) > 0 {
		keep = roaring.FastOr(sets...)
	}
	del := roaring.AndNot(st.Universe(), keep)

	deletable := make(map[string]int64, len(st.Origins()))
	for url, size := range st.Origins() {
		deletable[url] = size
	}
	kit := keep.Iterator()
	for kit.HasNext() {
		if url := st.OriginOf(kit.Next()); url != "" {
			delete(deletable, url)
		}
	}

	var reclaimable int64
	for _, size := range deletable {
		reclaimable += size
	}

	return &Plan{
		st:               st,
		Roots:            roots,
		Keep:             keep,
		Delete:           del,
		DeletableOrigins: deletable,
		ReclaimableBytes: reclaimable,
	}, nil
}

// DeleteIDs returns the canonical identifiers to delete, sorted.
func (p *Plan) DeleteIDs() []string {
	return p.ids(p.Delete)
}

// KeepIDs returns the canonical identifiers to keep, sorted.
func (p *Plan) KeepIDs() []string {
	return p.ids(p.Keep)
}

// DeletableOriginURLs returns the deletable origins, sorted.
func (p *Plan) DeletableOriginURLs() []string {
	urls := make([]string, 0, len(p.DeletableOrigins))
	for url := range p.DeletableOrigins {
		urls = append(urls, url)
	}
	slices.Sort(urls)
	return urls
}

// TotalObjects returns the universe size.
func (p *Plan) TotalObjects() int {
	return p.st.Len()
}

// TotalOrigins returns the number of distinct origins.
func (p *Plan) TotalOrigins() int {
	return len(p.st.Origins())
}

// DeleteCount returns the number of objects to delete.
func (p *Plan) DeleteCount() int {
	return int(p.Delete.GetCardinality())
}

// RootCount returns the number of retained roots.
func (p *Plan) RootCount() int {
	return int(p.Roots.GetCardinality())
}

func (p *Plan) ids(bm *roaring.Bitmap) []string {
	ids := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		ids = append(ids, p.st.ID(it.Next()))
	}
	return ids
}
