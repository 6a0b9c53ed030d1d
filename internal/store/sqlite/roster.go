package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/snaprace/internal/bib"
	"github.com/kozaktomas/snaprace/internal/photo"
	"github.com/kozaktomas/snaprace/internal/store"
)

func (s *Store) runnerKey(organizer, eventID, bibNumber string) (string, string) {
	return photo.EventKey(organizer, eventID), photo.RunnerSortKey(bib.PadBibNumber(bibNumber, s.bibPadWidth))
}

func (s *Store) TableExists(ctx context.Context) (bool, error) {
	return s.tableExists(ctx, "runners")
}

func (s *Store) ValidBibs(ctx context.Context, organizer, eventID string) ([]string, error) {
	exists, err := s.TableExists(ctx)
	if err != nil || !exists {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT sk FROM runners WHERE pk = ?`, photo.EventKey(organizer, eventID))
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	var bibs []string
	for rows.Next() {
		var sk string
		if err := rows.Scan(&sk); err != nil {
			return nil, err
		}
		if b, found := strings.CutPrefix(sk, "BIB#"); found && b != "" {
			bibs = append(bibs, bib.NormalizeBibNumber(b))
		}
	}
	return bibs, rows.Err()
}

func (s *Store) GetRunner(ctx context.Context, organizer, eventID, bibNumber string) (*photo.Runner, error) {
	exists, err := s.TableExists(ctx)
	if err != nil || !exists {
		return nil, err
	}

	pk, sk := s.runnerKey(organizer, eventID, bibNumber)
	r := photo.Runner{PK: pk, SK: sk}
	err = s.db.QueryRowContext(ctx,
		`SELECT bib_number, name, finish_time_sec, event_id, organizer_id FROM runners WHERE pk = ? AND sk = ?`,
		pk, sk).Scan(&r.BibNumber, &r.Name, &r.FinishTimeSec, &r.EventID, &r.OrganizerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get runner: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT object_key FROM runner_photos WHERE pk = ? AND sk = ? ORDER BY object_key`, pk, sk)
	if err != nil {
		return nil, fmt.Errorf("get runner photos: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		r.PhotoKeys = append(r.PhotoKeys, k)
	}
	return &r, rows.Err()
}

func (s *Store) AddPhotoKeys(ctx context.Context, organizer, eventID, bibNumber string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	exists, err := s.TableExists(ctx)
	if err != nil || !exists {
		return err
	}

	pk, sk := s.runnerKey(organizer, eventID, bibNumber)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin runner tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runners WHERE pk = ? AND sk = ?`, pk, sk).Scan(&n); err != nil {
		return fmt.Errorf("check runner: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: bib %s", store.ErrRunnerNotFound, bibNumber)
	}

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runner_photos (pk, sk, object_key) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
			pk, sk, k); err != nil {
			return fmt.Errorf("add runner photo: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) PutRunner(ctx context.Context, organizer, eventID string, runner photo.Runner) error {
	exists, err := s.TableExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("put runner %s: roster is not enabled", runner.BibNumber)
	}

	canonical := bib.NormalizeBibNumber(runner.BibNumber)
	pk, sk := s.runnerKey(organizer, eventID, canonical)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runners (pk, sk, bib_number, name, finish_time_sec, event_id, organizer_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (pk, sk) DO UPDATE SET
		     bib_number = excluded.bib_number, name = excluded.name,
		     finish_time_sec = excluded.finish_time_sec,
		     event_id = excluded.event_id, organizer_id = excluded.organizer_id`,
		pk, sk, canonical, runner.Name, runner.FinishTimeSec, eventID, organizer)
	if err != nil {
		return fmt.Errorf("put runner %s: %w", canonical, err)
	}
	return nil
}
