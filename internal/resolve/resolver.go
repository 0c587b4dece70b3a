// Package resolve looks up Spotify metadata for a listen by artist and title,
// consulting the persistent cache before the catalog.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/cache"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/logging"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/match"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/spotify"
)

// DefaultSearchLimit is the number of results requested per search.
const DefaultSearchLimit = 5

// ErrLookupFailed is returned when the catalog could not be queried. The
// outcome is not cached, so a later run retries the lookup.
var ErrLookupFailed = errors.New("catalog lookup failed")

// Catalog searches the Spotify track catalog.
type Catalog interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]spotify.Track, error)
}

// Result is the outcome of resolving one (artist, title) pair.
type Result struct {
	Found      bool
	TrackURI   string
	AlbumName  string
	DurationMs int64

	// FromCache is set when the outcome came from the cache alone.
	FromCache bool
	// APICalls counts the searches issued.
	APICalls int
}

// Resolver maps (artist, title) pairs to catalog metadata.
type Resolver struct {
	store   cache.Store
	catalog Catalog
	limit   int
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSearchLimit sets the number of results requested per search.
func WithSearchLimit(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// New creates a Resolver. A nil catalog makes the resolver offline: only
// cached outcomes are returned and nothing new is stored.
func New(store cache.Store, catalog Catalog, opts ...Option) *Resolver {
	r := &Resolver{
		store:   store,
		catalog: catalog,
		limit:   DefaultSearchLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.Component(r.logger, "resolve")
	return r
}

// Offline reports whether the resolver runs without a catalog.
func (r *Resolver) Offline() bool {
	return r.catalog == nil
}

// Resolve finds catalog metadata for artist and title. Candidates are tried
// most specific first; each is answered from the cache when possible and
// otherwise searched, with the outcome stored under the candidate's key.
//
// A not-found outcome is not an error. Authorization failures are returned
// as spotify.ErrUnauthorized; other catalog failures wrap ErrLookupFailed.
func (r *Resolver) Resolve(ctx context.Context, artist, title string) (Result, error) {
	var (
		res    Result
		cached bool
	)

	for _, c := range match.Candidates(artist, title) {
		key := c.Key()

		entry, ok, err := r.store.Get(ctx, key)
		if err != nil {
			return res, fmt.Errorf("reading cache: %w", err)
		}
		if ok {
			cached = true
			if entry.Found {
				return withEntry(res, entry, res.APICalls == 0), nil
			}
			continue
		}

		if r.catalog == nil {
			continue
		}

		entry, calls, err := r.search(ctx, c)
		res.APICalls += calls
		if err != nil {
			if errors.Is(err, spotify.ErrUnauthorized) {
				return res, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			return res, fmt.Errorf("%w for %q by %q: %w", ErrLookupFailed, title, artist, err)
		}

		if err := r.store.Put(ctx, key, entry); err != nil {
			return res, fmt.Errorf("writing cache: %w", err)
		}
		if entry.Found {
			r.logger.Debug("resolved", "artist", artist, "title", title, "key", key, "uri", entry.TrackURI)
			return withEntry(res, entry, false), nil
		}
	}

	res.FromCache = cached && res.APICalls == 0
	r.logger.Debug("not found", "artist", artist, "title", title, "api_calls", res.APICalls)
	return res, nil
}

// search runs the candidate's queries until one returns results and picks
// the best of them. It returns the entry to cache and the number of calls.
func (r *Resolver) search(ctx context.Context, c match.Candidate) (cache.Entry, int, error) {
	calls := 0
	for _, q := range match.Queries(c) {
		tracks, err := r.catalog.SearchTracks(ctx, q, r.limit)
		calls++
		if err != nil {
			return cache.NotFound, calls, err
		}

		i := match.Best(c, len(tracks), func(i int) (string, []string) {
			return tracks[i].Name, tracks[i].Artists
		})
		if i < 0 {
			continue
		}

		t := tracks[i]
		return cache.Entry{
			Found:      true,
			TrackURI:   t.URI,
			AlbumName:  t.Album,
			DurationMs: t.DurationMs,
		}, calls, nil
	}
	return cache.NotFound, calls, nil
}

func withEntry(res Result, entry cache.Entry, fromCache bool) Result {
	res.Found = true
	res.TrackURI = entry.TrackURI
	res.AlbumName = entry.AlbumName
	res.DurationMs = entry.DurationMs
	res.FromCache = fromCache
	return res
}
