// Package config loads converter settings from defaults, an optional TOML
// file, a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/batch"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/cache"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/convert"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/history"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/resolve"
)

// DefaultEnvFile is read when present.
const DefaultEnvFile = ".env"

// DefaultInputDir holds the ListenBrainz exports.
const DefaultInputDir = "data"

// DefaultFlushEvery is how many new cache entries trigger a save of the
// JSON cache.
const DefaultFlushEvery = 50

// Environment variables.
const (
	EnvClientID        = "SPOTIFY_CLIENT_ID"
	EnvClientSecret    = "SPOTIFY_CLIENT_SECRET"
	EnvClientIDAlt     = "SPOTIFY_ID"
	EnvClientSecretAlt = "SPOTIFY_SECRET"
	EnvUsername        = "USERNAME"
	EnvCountryCode     = "COUNTRY_CODE"
	EnvCacheDSN        = "LB2SPOTIFY_CACHE_DSN"
	EnvMaxPerFile      = "LB2SPOTIFY_MAX_PER_FILE"
)

// Config holds every converter setting.
type Config struct {
	Spotify     SpotifyConfig `toml:"spotify"`
	Username    string        `toml:"username"`
	CountryCode string        `toml:"country_code"`
	Input       string        `toml:"input"`
	Output      string        `toml:"output"`
	Unknowns    string        `toml:"unknowns"`
	MaxPerFile  int           `toml:"max_per_file"`
	DropSpotify bool          `toml:"drop_spotify"`
	DryRun      bool          `toml:"dry_run"`
	Cache       CacheConfig   `toml:"cache"`
	Log         LogConfig     `toml:"log"`
}

// SpotifyConfig holds the application credentials and search settings.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	SearchLimit  int    `toml:"search_limit"` // results requested per search
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend    string `toml:"backend"`
	Path       string `toml:"path"` // backend default when empty
	DSN        string `toml:"dsn"`
	FlushEvery int    `toml:"flush_every"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Username:    convert.DefaultUsername,
		CountryCode: convert.DefaultCountryCode,
		Input:       DefaultInputDir,
		Output:      history.DefaultFileName,
		Unknowns:    batch.DefaultUnknownsPath,
		Spotify: SpotifyConfig{
			SearchLimit: resolve.DefaultSearchLimit,
		},
		Cache: CacheConfig{
			Backend:    cache.BackendJSON,
			FlushEvery: DefaultFlushEvery,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. path names an optional TOML file; it is an
// error for a named file to be missing. envFile is loaded into the process
// environment without overriding variables that are already set; a missing
// env file is ignored. Load does not validate.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.Normalize()
	return &cfg, nil
}

func (c *Config) decodeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setFromEnv(&c.Spotify.ClientID, EnvClientIDAlt)
	setFromEnv(&c.Spotify.ClientID, EnvClientID)
	setFromEnv(&c.Spotify.ClientSecret, EnvClientSecretAlt)
	setFromEnv(&c.Spotify.ClientSecret, EnvClientSecret)
	setFromEnv(&c.Username, EnvUsername)
	setFromEnv(&c.CountryCode, EnvCountryCode)
	setFromEnv(&c.Cache.DSN, EnvCacheDSN)

	if v := strings.TrimSpace(os.Getenv(EnvMaxPerFile)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxPerFile, err)
		}
		c.MaxPerFile = n
	}
	return nil
}

// setFromEnv overwrites *dst with the variable's value when it is set and
// non-empty.
func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Normalize canonicalizes case and whitespace. Load calls it; callers that
// change fields afterwards call it again.
func (c *Config) Normalize() {
	c.CountryCode = strings.ToUpper(strings.TrimSpace(c.CountryCode))
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Username = strings.TrimSpace(c.Username)
}

// CachePath returns the cache file for file-based backends.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	if c.Cache.Backend == cache.BackendSQLite {
		return cache.DefaultSQLitePath
	}
	return cache.DefaultPath
}
