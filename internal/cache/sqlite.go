package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/logging"
)

// DefaultSQLitePath is used when the sqlite backend is selected without a path.
const DefaultSQLitePath = "spotify_cache.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS track_cache (
	key         TEXT PRIMARY KEY,
	found       INTEGER NOT NULL,
	track_uri   TEXT NOT NULL DEFAULT '',
	album_name  TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	cached_at   INTEGER NOT NULL
)`

// SQLiteStore keeps the cache in a SQLite database. Writes go straight to
// disk, so an interrupted run keeps every entry stored before it stopped.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	count  atomic.Int64
}

// OpenSQLite opens or creates the SQLite cache at path.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}

	s := &SQLiteStore{db: db, path: path, logger: logging.Component(logger, "cache")}

	var n int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM track_cache`).Scan(&n); err != nil {
		db.Close()
		return nil, fmt.Errorf("counting cache entries: %w", err)
	}
	s.count.Store(n)

	s.logger.Debug("opened sqlite track cache",
		slog.String("path", path),
		slog.Int64("entry_count", n))

	return s, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		e     Entry
		found int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT found, track_uri, album_name, duration_ms FROM track_cache WHERE key = ?`, key,
	).Scan(&found, &e.TrackURI, &e.AlbumName, &e.DurationMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("querying cache entry: %w", err)
	}
	e.Found = found != 0
	return e, true, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, key string, entry Entry) error {
	if key == "" {
		return ErrEmptyKey
	}

	found := 0
	if entry.Found {
		found = 1
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO track_cache (key, found, track_uri, album_name, duration_ms, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO NOTHING`,
		key, found, entry.TrackURI, entry.AlbumName, entry.DurationMs, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("inserting cache entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.count.Add(n)
	}
	return nil
}

// Len implements Store.
func (s *SQLiteStore) Len() int {
	return int(s.count.Load())
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
