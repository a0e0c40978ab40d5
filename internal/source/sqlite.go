package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/cachegc/internal/storepath"
)

// OriginPrefix is prepended to canonical identifiers to name the archive
// of an object loaded from a store database, which records no URL.
const OriginPrefix = "nar/"

// sqliteSource reads a Nix store database read-only.
//
// Schema subset used:
//
//	ValidPaths(id INTEGER PRIMARY KEY, path TEXT, registrationTime INTEGER, narSize INTEGER)
//	Refs(referrer INTEGER, reference INTEGER)
type sqliteSource struct {
	path  string
	canon storepath.Canonicalizer
}

func (s *sqliteSource) Name() string { return "sqlite:" + s.path }

func (s *sqliteSource) Load(ctx context.Context) ([]storepath.Record, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("stat database: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", s.path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	records, byID, err := s.loadPaths(ctx, db)
	if err != nil {
		return nil, &DecodeError{Source: s.Name(), Err: err}
	}
	if err := s.loadRefs(ctx, db, records, byID); err != nil {
		return nil, &DecodeError{Source: s.Name(), Err: err}
	}
	return records, nil
}

func (s *sqliteSource) loadPaths(ctx context.Context, db *sql.DB) ([]storepath.Record, map[int64]int, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, path, registrationTime, narSize FROM ValidPaths ORDER BY id")
	if err != nil {
		return nil, nil, fmt.Errorf("query ValidPaths: %w", err)
	}
	defer rows.Close()

	var records []storepath.Record
	byID := make(map[int64]int)
	for rows.Next() {
		var (
			id      int64
			path    string
			regTime int64
			narSize sql.NullInt64
		)
		if err := rows.Scan(&id, &path, &regTime, &narSize); err != nil {
			return nil, nil, fmt.Errorf("scan ValidPaths: %w", err)
		}
		byID[id] = len(records)
		records = append(records, storepath.Record{
			Path:             path,
			References:       []string{},
			RegistrationTime: regTime,
			DownloadSize:     narSize.Int64,
			URL:              OriginPrefix + s.canon.Canonical(path),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate ValidPaths: %w", err)
	}
	return records, byID, nil
}

func (s *sqliteSource) loadRefs(ctx context.Context, db *sql.DB, records []storepath.Record, byID map[int64]int) error {
	rows, err := db.QueryContext(ctx, "SELECT referrer, reference FROM Refs ORDER BY referrer, reference")
	if err != nil {
		return fmt.Errorf("query Refs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var referrer, reference int64
		if err := rows.Scan(&referrer, &reference); err != nil {
			return fmt.Errorf("scan Refs: %w", err)
		}
		from, ok := byID[referrer]
		if !ok {
			return fmt.Errorf("Refs row references unknown referrer id %d", referrer)
		}
		to, ok := byID[reference]
		if !ok {
			return fmt.Errorf("Refs row references unknown path id %d", reference)
		}
		records[from].References = append(records[from].References, records[to].Path)
	}
	return rows.Err()
}
