package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var positive = Entry{
	Found:      true,
	TrackURI:   "spotify:track:X",
	AlbumName:  "Album",
	DurationMs: 200000,
}

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "a|b"); err != nil || ok {
		t.Fatalf("Get() on empty store = ok %v, err %v", ok, err)
	}

	if err := s.Put(ctx, "a|b", positive); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, "c|d", NotFound); err != nil {
		t.Fatalf("Put(NotFound) error = %v", err)
	}

	got, ok, err := s.Get(ctx, "a|b")
	if err != nil || !ok {
		t.Fatalf("Get(a|b) = ok %v, err %v", ok, err)
	}
	if got != positive {
		t.Errorf("Get(a|b) = %+v, want %+v", got, positive)
	}

	got, ok, err = s.Get(ctx, "c|d")
	if err != nil || !ok {
		t.Fatalf("Get(c|d) = ok %v, err %v", ok, err)
	}
	if got.Found {
		t.Errorf("Get(c|d) = %+v, want negative entry", got)
	}

	// Append-only: a second Put does not replace the first.
	if err := s.Put(ctx, "c|d", positive); err != nil {
		t.Fatalf("Put() over existing key error = %v", err)
	}
	got, _, _ = s.Get(ctx, "c|d")
	if got.Found {
		t.Error("existing negative entry was overwritten")
	}

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	if err := s.Put(ctx, "", positive); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("Put(\"\") error = %v, want ErrEmptyKey", err)
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		artist, title, want string
	}{
		{"Queen", "Bohemian Rhapsody", "queen|bohemian rhapsody"},
		{" Beyoncé ", "Halo (feat. Nobody)", "beyonce|halo"},
		{"", "Song", "|song"},
	}
	for _, tt := range tests {
		if got := Key(tt.artist, tt.title); got != tt.want {
			t.Errorf("Key(%q, %q) = %q, want %q", tt.artist, tt.title, got, tt.want)
		}
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotify_cache.json")

	s, err := OpenFile(path, 0, nil)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	exerciseStore(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopen and verify persistence, including the null sentinel.
	s, err = OpenFile(path, 0, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	if s.Len() != 2 {
		t.Errorf("Len() after reopen = %d, want 2", s.Len())
	}
	got, ok, _ := s.Get(context.Background(), "a|b")
	if !ok || got != positive {
		t.Errorf("Get(a|b) after reopen = %+v, %v", got, ok)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("cache file is not a JSON object: %v", err)
	}
	if string(raw["c|d"]) != "null" {
		t.Errorf("negative entry on disk = %s, want null", raw["c|d"])
	}
}

func TestFileStoreReadsLegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotify_cache.json")
	legacy := `{
  "queen|bohemian rhapsody": {"spotify_track_uri": "spotify:track:abc", "album_name": "A Night at the Opera"},
  "nobody|nothing": null
}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := OpenFile(path, 0, nil)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer s.Close()

	got, ok, _ := s.Get(context.Background(), "queen|bohemian rhapsody")
	if !ok || !got.Found || got.TrackURI != "spotify:track:abc" || got.DurationMs != 0 {
		t.Errorf("legacy positive entry = %+v, %v", got, ok)
	}
	got, ok, _ = s.Get(context.Background(), "nobody|nothing")
	if !ok || got.Found {
		t.Errorf("legacy negative entry = %+v, %v", got, ok)
	}
}

func TestFileStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotify_cache.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := OpenFile(path, 0, nil)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer s.Close()
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotify_cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path, 0, nil); err == nil {
		t.Fatal("OpenFile() expected error for corrupt cache")
	}

	// The failed open must not leave the lock held.
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := OpenFile(path, 0, nil)
	if err != nil {
		t.Fatalf("OpenFile() after corrupt open error = %v", err)
	}
	s.Close()
}

func TestFileStoreFlushEvery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotify_cache.json")
	s, err := OpenFile(path, 2, nil)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	_ = s.Put(ctx, "k1", positive)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("cache written before threshold: %v", err)
	}

	_ = s.Put(ctx, "k2", NotFound)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("cache not written at threshold: %v", err)
	}
	if !strings.Contains(string(data), "k2") {
		t.Errorf("flushed cache missing k2: %s", data)
	}
}

func TestFileStoreLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotify_cache.json")

	first, err := OpenFile(path, 0, nil)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}

	if _, err := OpenFile(path, 0, nil); !errors.Is(err, ErrLocked) {
		t.Errorf("second OpenFile() error = %v, want ErrLocked", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(path + ".lock"); err != nil {
		t.Errorf("lock file removed on Close: %v", err)
	}

	second, err := OpenFile(path, 0, nil)
	if err != nil {
		t.Fatalf("OpenFile() after Close error = %v", err)
	}
	second.Close()
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := OpenSQLite(ctx, path, nil)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	exerciseStore(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = OpenSQLite(ctx, path, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	if s.Len() != 2 {
		t.Errorf("Len() after reopen = %d, want 2", s.Len())
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("LB2SPOTIFY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LB2SPOTIFY_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("OpenPostgres() error = %v", err)
	}
	defer s.Close()

	key := "test|" + t.Name()
	if err := s.Put(ctx, key, positive); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok, err := s.Get(ctx, key)
	if err != nil || !ok || got != positive {
		t.Errorf("Get() = %+v, %v, %v", got, ok, err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"default json", Options{Path: filepath.Join(dir, "a.json")}, nil},
		{"sqlite", Options{Backend: "SQLite", Path: filepath.Join(dir, "b.db")}, nil},
		{"postgres without dsn", Options{Backend: BackendPostgres}, ErrMissingDSN},
		{"unknown", Options{Backend: "redis"}, ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if s != nil {
				s.Close()
			}
		})
	}
}
