// Package cache persists resolved Spotify metadata keyed by normalized track
// identity. Entries are append-only: once a key is stored it is never
// replaced or invalidated.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/match"
)

// DefaultPath is the default JSON cache file.
const DefaultPath = "spotify_cache.json"

// Backend names.
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Common errors.
var (
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown cache backend")

	// ErrLocked is returned when another run holds the cache file.
	ErrLocked = errors.New("cache is locked by another run")

	// ErrEmptyKey is returned when storing under an empty key.
	ErrEmptyKey = errors.New("cache key cannot be empty")
)

// Entry is a cached lookup outcome. Found=false records that the catalog had
// no match so the lookup is not repeated.
type Entry struct {
	Found      bool
	TrackURI   string
	AlbumName  string
	DurationMs int64
}

// NotFound is the negative entry.
var NotFound = Entry{}

// Store is a persistent key/value mapping of lookup outcomes.
type Store interface {
	// Get returns the entry for key and whether it exists.
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Put stores entry under key unless key is already present.
	Put(ctx context.Context, key string, entry Entry) error
	// Len returns the number of entries.
	Len() int
	// Close persists pending entries and releases resources.
	Close() error
}

// Options selects and configures a Store.
type Options struct {
	Backend string
	// Path is the JSON or SQLite file.
	Path string
	// DSN is the PostgreSQL connection string.
	DSN string
	// FlushEvery saves the JSON file after this many new entries. Zero
	// saves only on Close.
	FlushEvery int
	Logger     *slog.Logger
}

// Open opens the configured store.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)

	// Each branch assigns only on success so a nil concrete store never
	// ends up inside a non-nil interface.
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendJSON:
		path := opts.Path
		if path == "" {
			path = DefaultPath
		}
		var fs *FileStore
		if fs, err = OpenFile(path, opts.FlushEvery, opts.Logger); err == nil {
			s = fs
		}
	case BackendSQLite:
		var ss *SQLiteStore
		if ss, err = OpenSQLite(ctx, opts.Path, opts.Logger); err == nil {
			s = ss
		}
	case BackendPostgres:
		var ps *PostgresStore
		if ps, err = OpenPostgres(ctx, opts.DSN, opts.Logger); err == nil {
			s = ps
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}

	if err != nil {
		return nil, err
	}
	return s, nil
}

// Key returns the cache key for an artist and title.
func Key(artist, title string) string {
	return match.Candidate{Artist: match.Normalize(artist), Title: match.Normalize(title)}.Key()
}
