package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/logging"
)

// fileEntry is the on-disk value. A null value in the file is a negative
// entry.
type fileEntry struct {
	SpotifyTrackURI string `json:"spotify_track_uri"`
	AlbumName       string `json:"album_name"`
	DurationMs      int64  `json:"duration_ms,omitempty"`
}

// FileStore keeps the cache in memory and persists it as a JSON object
// mapping keys to entries or null.
type FileStore struct {
	path       string
	flushEvery int
	logger     *slog.Logger
	lock       *flock.Flock

	mu      sync.RWMutex
	entries map[string]*fileEntry
	pending int
}

// OpenFile loads the cache at path, creating an empty cache if the file does
// not exist. It takes an exclusive lock on path+".lock" for the lifetime of
// the store; the lock file is left in place on Close.
func OpenFile(path string, flushEvery int, logger *slog.Logger) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking cache: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	s := &FileStore{
		path:       path,
		flushEvery: flushEvery,
		logger:     logging.Component(logger, "cache"),
		lock:       lock,
		entries:    make(map[string]*fileEntry),
	}

	if err := s.load(); err != nil {
		_ = s.unlock()
		return nil, err
	}

	return s, nil
}

// Path returns the cache file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	if e == nil {
		return NotFound, true, nil
	}
	return Entry{
		Found:      true,
		TrackURI:   e.SpotifyTrackURI,
		AlbumName:  e.AlbumName,
		DurationMs: e.DurationMs,
	}, true, nil
}

// Put implements Store.
func (s *FileStore) Put(_ context.Context, key string, entry Entry) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		return nil
	}

	var e *fileEntry
	if entry.Found {
		e = &fileEntry{
			SpotifyTrackURI: entry.TrackURI,
			AlbumName:       entry.AlbumName,
			DurationMs:      entry.DurationMs,
		}
	}
	s.entries[key] = e
	s.pending++

	if s.flushEvery > 0 && s.pending >= s.flushEvery {
		if err := s.save(); err != nil {
			return fmt.Errorf("persist cache: %w", err)
		}
	}
	return nil
}

// Len implements Store.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Flush writes pending entries to disk.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == 0 {
		return nil
	}
	return s.save()
}

// Close flushes pending entries and releases the lock.
func (s *FileStore) Close() error {
	flushErr := s.Flush()
	if err := s.unlock(); err != nil && flushErr == nil {
		return err
	}
	return flushErr
}

// unlock releases the lock. The lock file stays on disk: removing it would
// let a process holding the old inode and one creating a new file both
// believe they own the cache.
func (s *FileStore) unlock() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("unlocking cache: %w", err)
	}
	return nil
}

// load reads the cache from disk into memory.
func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // fresh start
		}
		return fmt.Errorf("read cache file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		return fmt.Errorf("parse cache file %s: %w", s.path, err)
	}
	if s.entries == nil {
		s.entries = make(map[string]*fileEntry)
	}

	s.logger.Debug("loaded track cache",
		slog.Int("entry_count", len(s.entries)),
		slog.String("path", s.path))

	return nil
}

// save writes the cache to disk atomically. Callers hold s.mu.
func (s *FileStore) save() error {
	// Map keys are marshaled in sorted order, so output is deterministic.
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	s.logger.Debug("saved track cache",
		slog.Int("entry_count", len(s.entries)),
		slog.Int("new_entries", s.pending))
	s.pending = 0
	return nil
}
