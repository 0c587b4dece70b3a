package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/db"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/logging"
)

// ErrMissingDSN is returned when the postgres backend has no connection string.
var ErrMissingDSN = errors.New("postgres cache requires a DSN")

// PostgresStore keeps the cache in a shared PostgreSQL table.
type PostgresStore struct {
	db     *db.DB
	logger *slog.Logger
	count  atomic.Int64
}

// OpenPostgres connects to dsn and prepares the track_cache table.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, ErrMissingDSN
	}

	database, err := db.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres cache: %w", err)
	}

	repo := database.TrackCache()
	if err := repo.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}

	n, err := repo.Count(ctx)
	if err != nil {
		database.Close()
		return nil, err
	}

	s := &PostgresStore{db: database, logger: logging.Component(logger, "cache")}
	s.count.Store(n)

	s.logger.Debug("opened postgres track cache", slog.Int64("entry_count", n))
	return s, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	t, err := s.db.TrackCache().Get(ctx, key)
	if errors.Is(err, db.ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return Entry{
		Found:      t.Found,
		TrackURI:   t.TrackURI,
		AlbumName:  t.AlbumName,
		DurationMs: t.DurationMs,
	}, true, nil
}

// Put implements Store.
func (s *PostgresStore) Put(ctx context.Context, key string, entry Entry) error {
	if key == "" {
		return ErrEmptyKey
	}

	inserted, err := s.db.TrackCache().Insert(ctx, &db.CachedTrack{
		Key:        key,
		Found:      entry.Found,
		TrackURI:   entry.TrackURI,
		AlbumName:  entry.AlbumName,
		DurationMs: entry.DurationMs,
	})
	if err != nil {
		return err
	}
	if inserted {
		s.count.Add(1)
	}
	return nil
}

// Len implements Store.
func (s *PostgresStore) Len() int {
	return int(s.count.Load())
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
