package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/cache"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/logging"
)

// maxSearchLimit is the largest page the Spotify search endpoint returns.
const maxSearchLimit = 50

// Validation errors.
var (
	// ErrMissingCredentials is returned when the Spotify client ID or secret
	// is missing outside dry-run mode.
	ErrMissingCredentials = errors.New("missing Spotify credentials: set " + EnvClientID + " and " + EnvClientSecret)

	// ErrInvalidCountryCode is returned for anything but two letters.
	ErrInvalidCountryCode = errors.New("country code must be two letters")

	// ErrInvalidSearchLimit is returned for a search limit outside 1..50.
	ErrInvalidSearchLimit = fmt.Errorf("spotify.search_limit must be between 1 and %d", maxSearchLimit)
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if !c.DryRun && (c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "") {
		return ErrMissingCredentials
	}
	if err := c.validateCountryCode(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Input) == "" {
		return errors.New("input directory must be set")
	}
	if strings.TrimSpace(c.Output) == "" {
		return errors.New("output must be set")
	}
	if c.Spotify.SearchLimit < 1 || c.Spotify.SearchLimit > maxSearchLimit {
		return fmt.Errorf("%w: got %d", ErrInvalidSearchLimit, c.Spotify.SearchLimit)
	}
	if c.MaxPerFile < 0 {
		return fmt.Errorf("max_per_file must not be negative, got %d", c.MaxPerFile)
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log format: unsupported value %q", c.Log.Format)
	}
	return nil
}

func (c *Config) validateCountryCode() error {
	code := c.CountryCode
	if len(code) != 2 {
		return fmt.Errorf("%w: %q", ErrInvalidCountryCode, code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("%w: %q", ErrInvalidCountryCode, code)
		}
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case cache.BackendJSON, cache.BackendSQLite:
	case cache.BackendPostgres:
		if c.Cache.DSN == "" {
			return fmt.Errorf("%w: set cache.dsn or %s", cache.ErrMissingDSN, EnvCacheDSN)
		}
	default:
		return fmt.Errorf("%w: %q", cache.ErrUnknownBackend, c.Cache.Backend)
	}
	if c.Cache.FlushEvery < 0 {
		return fmt.Errorf("cache.flush_every must not be negative, got %d", c.Cache.FlushEvery)
	}
	return nil
}
