package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TrackCacheRepository handles track cache database operations.
type TrackCacheRepository struct {
	pool *pgxpool.Pool
}

// EnsureSchema creates the track_cache table if it does not exist.
func (r *TrackCacheRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS track_cache (
			key         TEXT PRIMARY KEY,
			found       BOOLEAN NOT NULL,
			track_uri   TEXT NOT NULL DEFAULT '',
			album_name  TEXT NOT NULL DEFAULT '',
			duration_ms BIGINT NOT NULL DEFAULT 0,
			cached_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("creating track_cache table: %w", err)
	}
	return nil
}

// Get retrieves a cached track by key.
func (r *TrackCacheRepository) Get(ctx context.Context, key string) (*CachedTrack, error) {
	query := `
		SELECT key, found, track_uri, album_name, duration_ms, cached_at
		FROM track_cache
		WHERE key = $1
	`
	var t CachedTrack
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&t.Key,
		&t.Found,
		&t.TrackURI,
		&t.AlbumName,
		&t.DurationMs,
		&t.CachedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying cached track: %w", err)
	}
	return &t, nil
}

// Insert stores a cached track. An existing key is left untouched.
// Returns true if a row was inserted.
func (r *TrackCacheRepository) Insert(ctx context.Context, t *CachedTrack) (bool, error) {
	query := `
		INSERT INTO track_cache (key, found, track_uri, album_name, duration_ms, cached_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (key) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query, t.Key, t.Found, t.TrackURI, t.AlbumName, t.DurationMs)
	if err != nil {
		return false, fmt.Errorf("inserting cached track: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Count returns the number of cached tracks.
func (r *TrackCacheRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM track_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cached tracks: %w", err)
	}
	return n, nil
}
