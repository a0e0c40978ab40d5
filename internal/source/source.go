package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/cachegc/internal/storepath"
)

// ErrNotFound indicates the input location does not exist.
var ErrNotFound = errors.New("input not found")

// Source produces the full record list for one run.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string

	// Load reads every record.
	Load(ctx context.Context) ([]storepath.Record, error)
}

// Options configures Open.
type Options struct {
	// Stdin is read for "-". Default: os.Stdin.
	Stdin io.Reader

	// S3 configures the S3 client for s3:// inputs.
	S3 S3Config

	// Canonicalizer derives origins for database sources.
	Canonicalizer storepath.Canonicalizer

	// Logger receives per-source diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// Open returns the source named by spec.
func Open(spec string, opts Options) (Source, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch {
	case spec == "" || spec == "-":
		r := opts.Stdin
		if r == nil {
			r = os.Stdin
		}
		return &readerSource{name: "stdin", r: r}, nil

	case strings.HasPrefix(spec, "s3://"):
		bucket, key, ok := strings.Cut(strings.TrimPrefix(spec, "s3://"), "/")
		if !ok || bucket == "" || key == "" {
			return nil, fmt.Errorf("invalid s3 input %q: want s3://bucket/key", spec)
		}
		return &s3Source{bucket: bucket, key: key, cfg: opts.S3}, nil

	case strings.HasPrefix(spec, "sqlite:"):
		path := strings.TrimPrefix(spec, "sqlite:")
		if path == "" {
			return nil, fmt.Errorf("invalid sqlite input %q: missing path", spec)
		}
		return &sqliteSource{path: path, canon: opts.Canonicalizer}, nil

	case strings.HasPrefix(spec, "narinfo:"):
		dir := strings.TrimPrefix(spec, "narinfo:")
		if dir == "" {
			return nil, fmt.Errorf("invalid narinfo input %q: missing directory", spec)
		}
		return &narinfoSource{dir: dir, log: opts.Logger}, nil

	default:
		return &fileSource{path: spec}, nil
	}
}

// Load opens spec and loads it, logging the record count.
func Load(ctx context.Context, spec string, opts Options) ([]storepath.Record, error) {
	src, err := Open(spec, opts)
	if err != nil {
		return nil, err
	}
	records, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("records loaded", "source", src.Name(), "records", len(records))
	return records, nil
}

type readerSource struct {
	name string
	r    io.Reader
}

func (s *readerSource) Name() string { return s.name }

func (s *readerSource) Load(_ context.Context) ([]storepath.Record, error) {
	return Decode(s.name, s.r)
}

type fileSource struct {
	path string
}

func (s *fileSource) Name() string { return s.path }

func (s *fileSource) Load(_ context.Context) ([]storepath.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return Decode(s.path, f)
}
