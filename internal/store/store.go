package store

import (
	"log/slog"
	"slices"

	"github.com/RoaringBitmap/roaring"

	"github.com/roach88/cachegc/internal/storepath"
)

// Stats summarizes how a listing was folded into the store.
type Stats struct {
	Records    int // records in the listing
	Unique     int // distinct canonical identifiers
	Duplicates int // records dropped because their identifier was already seen
	Origins    int // distinct origin URLs
	Dangling   int // references to identifiers outside the universe
}

// Config controls how records are normalized.
type Config struct {
	Canonicalizer storepath.Canonicalizer
	Logger        *slog.Logger
}

// Store is the read-only record set for one run.
type Store struct {
	canon storepath.Canonicalizer

	ids     []string          // index → canonical id, sorted
	index   map[string]uint32 // canonical id → index
	records []*storepath.Record

	refs     [][]uint32 // index → referenced indices (sorted, deduplicated, may include self)
	dangling [][]string // index → canonical ids outside the universe

	origins map[string]int64
	stats   Stats
}

// Build folds records into a Store.
//
// Duplicate identifiers (after canonicalization) keep the first record and
// log a warning for each later one. Origins are attributed by URL: a later
// record sharing a URL overwrites the size, it never adds to it. Records
// with an empty URL are not attributed to any origin.
func Build(records []storepath.Record, cfg Config) *Store {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Store{
		canon:   cfg.Canonicalizer,
		index:   make(map[string]uint32, len(records)),
		origins: make(map[string]int64),
	}
	s.stats.Records = len(records)

	// First pass: dedupe and collect canonical ids.
	byID := make(map[string]*storepath.Record, len(records))
	kept := make([]*storepath.Record, 0, len(records))
	for i := range records {
		rec := &records[i]
		id := s.canon.Canonical(rec.Path)
		if _, seen := byID[id]; seen {
			s.stats.Duplicates++
			log.Warn("duplicate store object, keeping first", "id", id, "path", rec.Path)
			continue
		}
		byID[id] = rec
		kept = append(kept, rec)
		s.ids = append(s.ids, id)
	}
	slices.Sort(s.ids)

	s.records = make([]*storepath.Record, len(s.ids))
	for i, id := range s.ids {
		s.index[id] = uint32(i)
		s.records[i] = byID[id]
	}

	// Origins follow listing order so a later record sharing a URL wins.
	for _, rec := range kept {
		if rec.URL != "" {
			s.origins[rec.URL] = rec.DownloadSize
		}
	}

	// Second pass: resolve references against the universe.
	s.refs = make([][]uint32, len(s.ids))
	s.dangling = make([][]string, len(s.ids))
	for i, rec := range s.records {
		var resolved []uint32
		var missing []string
		for _, ref := range rec.References {
			id := s.canon.Canonical(ref)
			if idx, ok := s.index[id]; ok {
				resolved = append(resolved, idx)
			} else {
				missing = append(missing, id)
			}
		}
		slices.Sort(resolved)
		s.refs[i] = slices.Compact(resolved)
		if len(missing) > 0 {
			slices.Sort(missing)
			s.dangling[i] = slices.Compact(missing)
			s.stats.Dangling += len(s.dangling[i])
		}
	}

	s.stats.Unique = len(s.ids)
	s.stats.Origins = len(s.origins)

	log.Info("record store built",
		"records", s.stats.Records,
		"unique", s.stats.Unique,
		"duplicates", s.stats.Duplicates,
		"origins", s.stats.Origins,
		"dangling", s.stats.Dangling,
	)

	return s
}

// Len returns the number of objects in the universe.
func (s *Store) Len() int {
	return len(s.ids)
}

// Stats returns the build statistics.
func (s *Store) Stats() Stats {
	return s.stats
}

// Canonicalizer returns the identifier rule the store was built with.
func (s *Store) Canonicalizer() storepath.Canonicalizer {
	return s.canon
}

// Canonical normalizes id with the store's identifier rule.
func (s *Store) Canonical(id string) string {
	return s.canon.Canonical(id)
}

// Index returns the interned index of id (either form).
func (s *Store) Index(id string) (uint32, bool) {
	idx, ok := s.index[s.canon.Canonical(id)]
	return idx, ok
}

// ID returns the canonical identifier for an index.
func (s *Store) ID(idx uint32) string {
	return s.ids[idx]
}

// IDs returns all canonical identifiers in index order.
func (s *Store) IDs() []string {
	return slices.Clone(s.ids)
}

// Lookup returns the record for id (either form).
func (s *Store) Lookup(id string) (*storepath.Record, bool) {
	idx, ok := s.Index(id)
	if !ok {
		return nil, false
	}
	return s.records[idx], true
}

// Record returns the record at idx. The record must not be modified.
func (s *Store) Record(idx uint32) *storepath.Record {
	return s.records[idx]
}

// References returns the in-universe references of idx, sorted and
// deduplicated. Self references are included; callers skip them.
// The slice must not be modified.
func (s *Store) References(idx uint32) []uint32 {
	return s.refs[idx]
}

// Dangling returns the canonical identifiers idx references that are not
// part of the universe.
func (s *Store) Dangling(idx uint32) []string {
	return s.dangling[idx]
}

// OriginOf returns the origin URL of idx, or "" if it has none.
func (s *Store) OriginOf(idx uint32) string {
	return s.records[idx].URL
}

// Origins returns the origin → size map. The map must not be modified.
func (s *Store) Origins() map[string]int64 {
	return s.origins
}

// Universe returns a new bitmap containing every index.
func (s *Store) Universe() *roaring.Bitmap {
	bm := roaring.New()
	bm.AddRange(0, uint64(len(s.ids)))
	return bm
}
