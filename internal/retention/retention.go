// Package retention selects garbage-collection roots by age.
//
// An object is a root when it was registered strictly after the cutoff,
// i.e. within the retention window. Everything a root references is kept
// regardless of its own age.
package retention

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/roach88/cachegc/internal/store"
)

const (
	// DefaultDays is the retention window used when none (or an invalid
	// one) is given.
	DefaultDays = 90

	// MaxDays bounds the window so the cutoff stays representable.
	MaxDays = 100000

	secondsPerDay = 24 * 60 * 60
)

// ParseDays converts a textual window length. Empty input selects the
// default silently; anything that is not a positive integer no greater
// than MaxDays selects the default with a warning.
func ParseDays(raw string, logger *slog.Logger) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultDays
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		warnDefault(logger, raw)
		return DefaultDays
	}
	return NormalizeDays(days, logger)
}

// NormalizeDays returns days when it is in (0, MaxDays], otherwise the
// default with a warning.
func NormalizeDays(days int, logger *slog.Logger) int {
	if days <= 0 || days > MaxDays {
		warnDefault(logger, strconv.Itoa(days))
		return DefaultDays
	}
	return days
}

func warnDefault(logger *slog.Logger, raw string) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("invalid retention window, using default",
		"value", raw,
		"default_days", DefaultDays,
	)
}

// Cutoff returns now minus days, in epoch seconds.
func Cutoff(now time.Time, days int) int64 {
	return now.Unix() - int64(days)*secondsPerDay
}

// IsRoot reports whether a registration time falls inside the window.
func IsRoot(registered, cutoff int64) bool {
	return registered > cutoff
}

// SelectRoots returns the indices of every object registered after cutoff.
func SelectRoots(st *store.Store, cutoff int64) *roaring.Bitmap {
	roots := roaring.New()
	for idx := uint32(0); idx < uint32(st.Len()); idx++ {
		if IsRoot(st.Record(idx).RegistrationTime, cutoff) {
			roots.Add(idx)
		}
	}
	return roots
}

// Roots returns the canonical identifiers selected by SelectRoots, sorted.
func Roots(st *store.Store, cutoff int64) []string {
	bm := SelectRoots(st, cutoff)
	ids := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		ids = append(ids, st.ID(it.Next()))
	}
	return ids
}
