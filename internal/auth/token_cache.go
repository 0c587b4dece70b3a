// Package auth provides Spotify client-credentials authentication with token
// caching.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

const (
	configDirName = "lb2spotify"
	tokenFileName = "token.json"
)

// cachedToken is the on-disk record. Owner ties the token to the
// credentials that requested it.
type cachedToken struct {
	Owner string        `json:"owner"`
	Token *oauth2.Token `json:"token"`
}

// TokenCache stores the last issued app access token on disk.
type TokenCache struct {
	path string
}

// DefaultTokenCache returns a TokenCache at
// <UserConfigDir>/lb2spotify/token.json.
func DefaultTokenCache() (*TokenCache, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("getting user config dir: %w", err)
	}
	return NewTokenCache(filepath.Join(configDir, configDirName, tokenFileName)), nil
}

// NewTokenCache creates a TokenCache at path.
func NewTokenCache(path string) *TokenCache {
	return &TokenCache{path: path}
}

// Path returns the token file path.
func (c *TokenCache) Path() string {
	return c.path
}

// Load returns the cached token for owner. It returns (nil, nil) when no
// token is cached or the cached token belongs to other credentials.
func (c *TokenCache) Load(owner string) (*oauth2.Token, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading token file: %w", err)
	}

	var rec cachedToken
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing token file: %w", err)
	}
	if rec.Owner != owner || rec.Token == nil {
		return nil, nil
	}
	return rec.Token, nil
}

// Save stores token for owner, replacing any cached token. The file is
// readable by the current user only.
func (c *TokenCache) Save(owner string, token *oauth2.Token) error {
	if token == nil {
		return errors.New("cannot save nil token")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cachedToken{Owner: owner, Token: token}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing token file: %w", err)
	}
	return nil
}

// Delete removes the token file. A missing file is not an error.
func (c *TokenCache) Delete() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}
