package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrMissingCredentials is returned when the client ID or secret is empty.
var ErrMissingCredentials = errors.New("missing Spotify client ID or client secret")

// Authenticator obtains app-level access tokens with the client credentials
// grant. No user authorization is involved.
type Authenticator struct {
	config     clientcredentials.Config
	cache      *TokenCache
	clientOpts []spotify.ClientOption
	logger     *slog.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithTokenURL overrides the token endpoint.
func WithTokenURL(url string) Option {
	return func(a *Authenticator) { a.config.TokenURL = url }
}

// WithTokenCache sets the token cache. A nil cache disables caching.
func WithTokenCache(c *TokenCache) Option {
	return func(a *Authenticator) { a.cache = c }
}

// WithClientOptions passes options through to the Spotify client.
func WithClientOptions(opts ...spotify.ClientOption) Option {
	return func(a *Authenticator) { a.clientOpts = append(a.clientOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) { a.logger = logger }
}

// New creates an Authenticator for the given application credentials.
// Returns ErrMissingCredentials if either is empty.
func New(clientID, clientSecret string, opts ...Option) (*Authenticator, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}

	a := &Authenticator{
		config: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyauth.TokenURL,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Client returns a Spotify client authorized with an app access token. A
// cached token is reused while it is valid; a new one is fetched eagerly so
// bad credentials fail here rather than on the first search.
func (a *Authenticator) Client(ctx context.Context) (*spotify.Client, error) {
	src, err := a.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := src.Token(); err != nil {
		return nil, fmt.Errorf("fetching access token: %w", err)
	}

	opts := append([]spotify.ClientOption{spotify.WithRetry(true)}, a.clientOpts...)
	return spotify.New(oauth2.NewClient(ctx, src), opts...), nil
}

// Forget deletes the cached token so the next run requests a new one. It is
// a no-op without a cache.
func (a *Authenticator) Forget() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Delete()
}

// owner identifies the credentials a cached token was issued for: the client
// ID plus a digest of the secret, so a rotated secret never reuses an old
// token.
func (a *Authenticator) owner() string {
	sum := sha256.Sum256([]byte(a.config.ClientSecret))
	return a.config.ClientID + ":" + hex.EncodeToString(sum[:8])
}

// TokenSource returns a token source that starts from the cached token and
// saves every newly issued token back to the cache.
func (a *Authenticator) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	var cached *oauth2.Token
	if a.cache != nil {
		tok, err := a.cache.Load(a.owner())
		if err != nil {
			// A corrupt cache file only costs one token request.
			a.logger.Warn("ignoring unreadable token cache", "path", a.cache.Path(), "error", err)
		} else if tok != nil && tok.Valid() {
			cached = tok
		}
	}

	src := &cachingSource{
		src:      a.config.TokenSource(ctx),
		owner:    a.owner(),
		cache:    a.cache,
		logger:   a.logger,
	}
	if cached != nil {
		src.last = cached.AccessToken
		a.logger.Debug("using cached access token", "expiry", cached.Expiry)
	}

	return oauth2.ReuseTokenSource(cached, src), nil
}

// cachingSource persists tokens as they are issued.
type cachingSource struct {
	src      oauth2.TokenSource
	owner    string
	cache    *TokenCache
	logger   *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *cachingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil && tok.AccessToken != s.last {
		if err := s.cache.Save(s.owner, tok); err != nil {
			s.logger.Warn("failed to cache token", "error", err)
		}
	}
	s.last = tok.AccessToken
	return tok, nil
}
