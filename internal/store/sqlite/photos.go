package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/snaprace/internal/photo"
)

const photoColumns = `event_key, object_key, status, upload_ts, detected_bibs, face_ids,
	image_width, image_height, is_group_photo, created_at, updated_at`

func (s *Store) GetPhoto(ctx context.Context, organizer, eventID, objectKey string) (*photo.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE event_key = ? AND object_key = ?`,
		photo.EventKey(organizer, eventID), objectKey)

	var (
		rec          photo.Record
		status       string
		bibs, faces  sql.NullString
		isGroupPhoto sql.NullBool
	)
	err := row.Scan(&rec.EventKey, &rec.ObjectKey, &status, &rec.UploadTimestamp, &bibs, &faces,
		&rec.ImageWidth, &rec.ImageHeight, &isGroupPhoto, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}

	rec.Status = photo.Status(status)
	if rec.DetectedBibs, err = decodeList(bibs); err != nil {
		return nil, fmt.Errorf("decode detected bibs: %w", err)
	}
	if rec.FaceIDs, err = decodeList(faces); err != nil {
		return nil, fmt.Errorf("decode face ids: %w", err)
	}
	if isGroupPhoto.Valid {
		v := isGroupPhoto.Bool
		rec.IsGroupPhoto = &v
	}
	return &rec, nil
}

func (s *Store) CreatePhoto(ctx context.Context, rec photo.Record) (bool, error) {
	bibs, err := encodeList(rec.DetectedBibs)
	if err != nil {
		return false, err
	}
	faces, err := encodeList(rec.FaceIDs)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO photos (`+photoColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (event_key, object_key) DO NOTHING`,
		rec.EventKey, rec.ObjectKey, string(rec.Status), rec.UploadTimestamp, bibs, faces,
		rec.ImageWidth, rec.ImageHeight, nullableBool(rec.IsGroupPhoto), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert photo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// UpdatePhoto upserts the supplied columns, matching UpdateItem semantics.
func (s *Store) UpdatePhoto(ctx context.Context, organizer, eventID, objectKey string, patch *photo.Patch) error {
	columns := []string{"updated_at"}
	args := []any{s.now().UnixMilli()}

	if patch != nil {
		if patch.Status != nil {
			columns = append(columns, "status")
			args = append(args, string(*patch.Status))
		}
		if patch.DetectedBibs != nil {
			v, err := encodeList(*patch.DetectedBibs)
			if err != nil {
				return err
			}
			columns = append(columns, "detected_bibs")
			args = append(args, v)
		}
		if patch.FaceIDs != nil {
			v, err := encodeList(*patch.FaceIDs)
			if err != nil {
				return err
			}
			columns = append(columns, "face_ids")
			args = append(args, v)
		}
		if patch.ImageWidth != nil {
			columns = append(columns, "image_width")
			args = append(args, *patch.ImageWidth)
		}
		if patch.ImageHeight != nil {
			columns = append(columns, "image_height")
			args = append(args, *patch.ImageHeight)
		}
		if patch.IsGroupPhoto != nil {
			columns = append(columns, "is_group_photo")
			args = append(args, *patch.IsGroupPhoto)
		}
	}

	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = c + " = excluded." + c
	}

	query := `INSERT INTO photos (event_key, object_key, ` + strings.Join(columns, ", ") + `)
		VALUES (?, ?` + strings.Repeat(", ?", len(columns)) + `)
		ON CONFLICT (event_key, object_key) DO UPDATE SET ` + strings.Join(sets, ", ")

	allArgs := append([]any{photo.EventKey(organizer, eventID), objectKey}, args...)
	if _, err := s.db.ExecContext(ctx, query, allArgs...); err != nil {
		return fmt.Errorf("update photo: %w", err)
	}
	return nil
}

func encodeList(v []string) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(v sql.NullString) ([]string, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nullableBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}
