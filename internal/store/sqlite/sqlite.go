// Package sqlite implements the store contracts on a local SQLite file, for
// running the pipeline without AWS.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var baseSchema = []string{
	`CREATE TABLE IF NOT EXISTS photos (
		event_key      TEXT NOT NULL,
		object_key     TEXT NOT NULL,
		status         TEXT NOT NULL DEFAULT '',
		upload_ts      INTEGER NOT NULL DEFAULT 0,
		detected_bibs  TEXT,
		face_ids       TEXT,
		image_width    INTEGER NOT NULL DEFAULT 0,
		image_height   INTEGER NOT NULL DEFAULT 0,
		is_group_photo INTEGER,
		created_at     INTEGER NOT NULL DEFAULT 0,
		updated_at     INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (event_key, object_key)
	)`,
	`CREATE TABLE IF NOT EXISTS bib_index (
		event_bib_key TEXT NOT NULL,
		object_key    TEXT NOT NULL,
		indexed_at    INTEGER NOT NULL,
		PRIMARY KEY (event_bib_key, object_key)
	)`,
}

var rosterSchema = []string{
	`CREATE TABLE IF NOT EXISTS runners (
		pk              TEXT NOT NULL,
		sk              TEXT NOT NULL,
		bib_number      TEXT NOT NULL,
		name            TEXT NOT NULL DEFAULT '',
		finish_time_sec INTEGER NOT NULL DEFAULT 0,
		event_id        TEXT NOT NULL DEFAULT '',
		organizer_id    TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (pk, sk)
	)`,
	`CREATE TABLE IF NOT EXISTS runner_photos (
		pk         TEXT NOT NULL,
		sk         TEXT NOT NULL,
		object_key TEXT NOT NULL,
		PRIMARY KEY (pk, sk, object_key),
		FOREIGN KEY (pk, sk) REFERENCES runners (pk, sk) ON DELETE CASCADE
	)`,
}

type Options struct {
	Path string
	// Roster creates the runner tables; without it the roster reads as absent
	Roster      bool
	BibPadWidth int
	Now         func() time.Time
}

// Store manages pipeline persistence backed by SQLite.
type Store struct {
	db          *sql.DB
	bibPadWidth int
	now         func() time.Time
}

// Open initializes or connects to the database and applies the schema.
func Open(ctx context.Context, opts Options) (*Store, error) {
	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer avoids SQLITE_BUSY between pipeline goroutines
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	schema := baseSchema
	if opts.Roster {
		schema = append(append([]string{}, baseSchema...), rosterSchema...)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, bibPadWidth: opts.BibPadWidth, now: now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("probe table %s: %w", name, err)
	}
	return n > 0, nil
}
