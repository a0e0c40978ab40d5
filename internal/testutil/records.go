// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/cachegc/internal/storepath"
)

// Hash returns a canonical identifier made of 32 copies of c.
func Hash(c byte) string {
	return strings.Repeat(string(c), storepath.DefaultHashLen)
}

// Path returns the full identifier for Hash(c) with a "pkg-<c>" suffix.
func Path(c byte) string {
	return storepath.DefaultStoreDir + "/" + Hash(c) + "-pkg-" + string(c)
}

// Record returns a record for Path(c) registered at the given time and
// referencing the full paths of refs.
func Record(c byte, registered int64, refs ...byte) storepath.Record {
	rec := storepath.Record{
		Path:             Path(c),
		References:       []string{},
		RegistrationTime: registered,
	}
	for _, r := range refs {
		rec.References = append(rec.References, Path(r))
	}
	return rec
}

// WithOrigin sets the origin URL and transfer size of rec.
func WithOrigin(rec storepath.Record, url string, size int64) storepath.Record {
	rec.URL = url
	rec.DownloadSize = size
	return rec
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CaptureLogger returns a debug-level text logger writing into the
// returned buffer.
func CaptureLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	h := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h), buf
}
