package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/cachegc/internal/storepath"
)

// NarinfoExt is the file extension of narinfo descriptors.
const NarinfoExt = ".narinfo"

// narinfoSource reads a binary cache directory. The registration time of
// each object is the modification time of its narinfo file.
type narinfoSource struct {
	dir string
	log *slog.Logger
}

func (s *narinfoSource) Name() string { return "narinfo:" + s.dir }

func (s *narinfoSource) Load(ctx context.Context) ([]storepath.Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.dir)
		}
		return nil, fmt.Errorf("read cache directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), NarinfoExt) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	records := make([]storepath.Record, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := readNarinfo(filepath.Join(s.dir, name))
		if err != nil {
			return nil, &DecodeError{Source: s.Name(), Err: err}
		}
		records = append(records, rec)
	}
	s.log.Debug("narinfo directory scanned", "dir", s.dir, "files", len(names))
	return records, nil
}

func readNarinfo(path string) (storepath.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return storepath.Record{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return storepath.Record{}, err
	}

	rec, err := ParseNarinfo(f)
	if err != nil {
		return storepath.Record{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	rec.RegistrationTime = info.ModTime().Unix()
	return rec, nil
}

// maxNarinfoLine bounds a single narinfo line. References lists of large
// closures run well past bufio's default 64 KiB token size.
const maxNarinfoLine = 16 << 20

// ParseNarinfo reads the fields of one narinfo descriptor. References
// are returned as given (bare "<hash>-<name>" entries); the registration
// time is left to the caller.
func ParseNarinfo(r io.Reader) (storepath.Record, error) {
	rec := storepath.Record{References: []string{}}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxNarinfoLine)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		key, value, ok := strings.Cut(text, ": ")
		if !ok {
			// "References:" with nothing after it has no trailing space.
			key, value, ok = strings.Cut(text, ":")
			if !ok {
				return rec, fmt.Errorf("line %d: expected \"Key: value\"", line)
			}
		}
		value = strings.TrimSpace(value)

		switch key {
		case "StorePath":
			rec.Path = value
		case "URL":
			rec.URL = value
		case "FileSize":
			size, err := strconv.ParseInt(value, 10, 64)
			if err != nil || size < 0 {
				return rec, fmt.Errorf("line %d: invalid FileSize %q", line, value)
			}
			rec.DownloadSize = size
		case "References":
			rec.References = append(rec.References, strings.Fields(value)...)
		}
	}
	if err := sc.Err(); err != nil {
		return rec, err
	}
	if rec.Path == "" {
		return rec, errors.New("missing StorePath")
	}
	return rec, nil
}
