package sqlite

import (
	"context"
	"fmt"

	"github.com/kozaktomas/snaprace/internal/photo"
)

func (s *Store) PutBibIndex(ctx context.Context, organizer, eventID, objectKey string, bibs []string) error {
	if len(bibs) == 0 {
		return nil
	}
	indexedAt := s.now().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bib index tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO bib_index (event_bib_key, object_key, indexed_at) VALUES (?, ?, ?)
		 ON CONFLICT (event_bib_key, object_key) DO UPDATE SET indexed_at = excluded.indexed_at`)
	if err != nil {
		return fmt.Errorf("prepare bib index insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bibs {
		if _, err := stmt.ExecContext(ctx, photo.EventBibKey(organizer, eventID, b), objectKey, indexedAt); err != nil {
			return fmt.Errorf("insert bib index %s: %w", b, err)
		}
	}
	return tx.Commit()
}

func (s *Store) QueryBibIndex(ctx context.Context, organizer, eventID, bib string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT object_key FROM bib_index WHERE event_bib_key = ? ORDER BY object_key`,
		photo.EventBibKey(organizer, eventID, bib))
	if err != nil {
		return nil, fmt.Errorf("query bib index: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
