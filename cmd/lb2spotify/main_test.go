package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/config"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/history"
)

// clearEnv blanks the variables the configuration reads. Blank values are
// treated as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvClientID, config.EnvClientSecret, config.EnvClientIDAlt, config.EnvClientSecretAlt,
		config.EnvCountryCode, config.EnvCacheDSN, config.EnvMaxPerFile,
	} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(append(args, "--env-file", "", "--log-level", "error"))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeFixtures(t *testing.T) (input, cachePath string) {
	t.Helper()
	dir := t.TempDir()
	input = filepath.Join(dir, "data")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatal(err)
	}

	listens := `{"listened_at":1000,"track_metadata":{"artist_name":"A","track_name":"B"}}
{"listened_at":500,"track_metadata":{"artist_name":"C","track_name":"D"}}
`
	if err := os.WriteFile(filepath.Join(input, "listens.jsonl"), []byte(listens), 0o644); err != nil {
		t.Fatal(err)
	}

	cachePath = filepath.Join(dir, "cache.json")
	cached := `{"a|b": {"spotify_track_uri": "spotify:track:X", "album_name": "Album", "duration_ms": 200000}}`
	if err := os.WriteFile(cachePath, []byte(cached), 0o644); err != nil {
		t.Fatal(err)
	}
	return input, cachePath
}

func TestDryRun(t *testing.T) {
	clearEnv(t)
	input, cachePath := writeFixtures(t)
	output := filepath.Join(t.TempDir(), "history.json")
	unknowns := filepath.Join(t.TempDir(), "unknown.txt")

	stdout, err := execute(t,
		"--input", input,
		"--output", output,
		"--cache", cachePath,
		"--unknowns", unknowns,
		"--dry-run",
	)
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if !strings.Contains(stdout, "Wrote "+output) {
		t.Errorf("stdout missing output path:\n%s", stdout)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var streams []history.Stream
	if err := json.Unmarshal(data, &streams); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(streams) != 2 {
		t.Fatalf("got %d entries, want 2", len(streams))
	}
	if streams[0].SpotifyTrackURI != nil {
		t.Errorf("uncached listen resolved in dry run: %q", *streams[0].SpotifyTrackURI)
	}
	if got := streams[1]; got.TrackURI() != "spotify:track:X" || got.Ts != "1970-01-01T00:16:40Z" || got.MsPlayed != 200000 {
		t.Errorf("cached listen = %+v", got)
	}

	list, err := os.ReadFile(unknowns)
	if err != nil {
		t.Fatalf("reading unknowns: %v", err)
	}
	if string(list) != "C – D" {
		t.Errorf("unknowns = %q", list)
	}
}

func TestMissingCredentials(t *testing.T) {
	clearEnv(t)
	input, cachePath := writeFixtures(t)

	_, err := execute(t, "--input", input, "--cache", cachePath, "--output", filepath.Join(t.TempDir(), "out.json"))
	if !errors.Is(err, config.ErrMissingCredentials) {
		t.Errorf("execute() error = %v, want ErrMissingCredentials", err)
	}
}

func TestInvalidFlags(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"negative max per file", []string{"--dry-run", "--max-per-file", "-1"}},
		{"bad country", []string{"--dry-run"}},
		{"unknown backend", []string{"--dry-run", "--cache-backend", "redis"}},
		{"search limit too high", []string{"--dry-run", "--search-limit", "100"}},
		{"unexpected argument", []string{"--dry-run", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "bad country" {
				t.Setenv(config.EnvCountryCode, "Belgium")
			}
			if _, err := execute(t, tt.args...); err == nil {
				t.Errorf("execute(%v) expected error", tt.args)
			}
		})
	}
}

func TestCacheInfo(t *testing.T) {
	clearEnv(t)
	_, cachePath := writeFixtures(t)

	stdout, err := execute(t, "cache", "info", "--cache", cachePath)
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	for _, want := range []string{"Backend:  json", "Location: " + cachePath, "Entries:  1"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
}
