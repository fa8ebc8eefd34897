package records

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

const recordColumns = `key, blob_name, image_public_url, generated_audio_url, extracted_text,
  audio_object_name, content_type, size_bytes, created_at, updated_at`

func (r *PGRepo) List(ctx context.Context) ([]Record, error) {
	query := `
SELECT ` + recordColumns + `
FROM records
ORDER BY updated_at DESC, key ASC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PGRepo) Get(ctx context.Context, key string) (Record, error) {
	query := `
SELECT ` + recordColumns + `
FROM records
WHERE key = $1
LIMIT 1`
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (r *PGRepo) Upsert(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO records (key, blob_name, image_public_url, generated_audio_url, extracted_text,
  audio_object_name, content_type, size_bytes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
ON CONFLICT (key) DO UPDATE SET
  blob_name = EXCLUDED.blob_name,
  image_public_url = EXCLUDED.image_public_url,
  generated_audio_url = EXCLUDED.generated_audio_url,
  extracted_text = EXCLUDED.extracted_text,
  audio_object_name = EXCLUDED.audio_object_name,
  content_type = EXCLUDED.content_type,
  size_bytes = EXCLUDED.size_bytes,
  updated_at = now()`
	_, err := r.DB.ExecContext(ctx, query,
		rec.Key,
		rec.BlobName,
		rec.ImagePublicURL,
		rec.GeneratedAudioURL,
		rec.ExtractedText,
		rec.AudioObjectName,
		rec.ContentType,
		rec.SizeBytes,
	)
	return err
}

func (r *PGRepo) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.Key,
		&rec.BlobName,
		&rec.ImagePublicURL,
		&rec.GeneratedAudioURL,
		&rec.ExtractedText,
		&rec.AudioObjectName,
		&rec.ContentType,
		&rec.SizeBytes,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}
