package storage

import (
	"context"
	"fmt"
)

// PutBlob stores data under key, replacing any previous content.
func (r *Repository) PutBlob(ctx context.Context, key, contentType string, data []byte) error {
	const q = `
		INSERT INTO blobs (key, content_type, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET content_type = EXCLUDED.content_type,
		    data         = EXCLUDED.data,
		    created_at   = NOW()
	`

	if _, err := r.q.Exec(ctx, q, key, contentType, data); err != nil {
		return fmt.Errorf("storing blob %s: %w", key, err)
	}
	return nil
}

// GetBlob returns the content type and bytes stored under key, or
// travel.ErrNotFound.
func (r *Repository) GetBlob(ctx context.Context, key string) (string, []byte, error) {
	var (
		contentType string
		data        []byte
	)
	err := r.q.QueryRow(ctx, `SELECT content_type, data FROM blobs WHERE key = $1`, key).Scan(&contentType, &data)
	if err != nil {
		return "", nil, notFound(err, "querying blob %s", key)
	}
	return contentType, data, nil
}
