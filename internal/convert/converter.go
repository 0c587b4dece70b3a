// Package convert turns ListenBrainz listens into Spotify extended streaming
// history entries.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/history"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/listenbrainz"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/logging"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/resolve"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/spotify"
)

// Default identity fields for converted entries.
const (
	DefaultUsername    = "your_username"
	DefaultCountryCode = "XX"
)

// ErrInvalidListen is returned for a listen without a timestamp or title.
var ErrInvalidListen = errors.New("listen is missing listened_at or track_name")

// Outcome describes how a listen was converted.
type Outcome int

const (
	// OutcomeSpotify is a Spotify-origin listen remapped field by field.
	OutcomeSpotify Outcome = iota
	// OutcomeEmbeddedURI is a listen that already carried a track URI.
	OutcomeEmbeddedURI
	// OutcomeResolved is a listen matched through the resolver.
	OutcomeResolved
	// OutcomeUnresolved is a listen forwarded without a track URI.
	OutcomeUnresolved
	// OutcomeSkipped is a listen that produced no entry.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSpotify:
		return "spotify"
	case OutcomeEmbeddedURI:
		return "embedded_uri"
	case OutcomeResolved:
		return "resolved"
	case OutcomeUnresolved:
		return "unresolved"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Resolver looks up catalog metadata for an artist and title.
type Resolver interface {
	Resolve(ctx context.Context, artist, title string) (resolve.Result, error)
}

// Options configures a Converter.
type Options struct {
	Username    string
	CountryCode string
	// DropSpotify skips Spotify-origin listens, for merging the output with
	// a real Spotify export that already contains them.
	DropSpotify bool
	Logger      *slog.Logger
}

// Converter converts listens one at a time.
type Converter struct {
	resolver Resolver
	opts     Options
	logger   *slog.Logger
}

// Result is the outcome of converting one listen.
type Result struct {
	Stream  history.Stream
	Outcome Outcome

	APICalls int
	CacheHit bool
	// LookupErr holds the catalog failure behind an OutcomeUnresolved
	// entry, if there was one.
	LookupErr error
}

// New creates a Converter.
func New(resolver Resolver, opts Options) *Converter {
	if opts.Username == "" {
		opts.Username = DefaultUsername
	}
	if opts.CountryCode == "" {
		opts.CountryCode = DefaultCountryCode
	}
	return &Converter{
		resolver: resolver,
		opts:     opts,
		logger:   logging.Component(opts.Logger, "convert"),
	}
}

// Convert converts a single listen. Spotify-origin listens and listens that
// already carry a track URI never reach the resolver.
//
// The returned error is non-nil only for an invalid listen, cancellation or
// spotify.ErrUnauthorized. Other lookup failures produce an unresolved entry
// with Result.LookupErr set.
func (c *Converter) Convert(ctx context.Context, l listenbrainz.Listen) (Result, error) {
	if l.ListenedAt <= 0 || l.Track() == "" {
		return Result{Outcome: OutcomeSkipped}, ErrInvalidListen
	}

	if origin := l.Origin(); origin == listenbrainz.OriginSpotify {
		if c.opts.DropSpotify {
			c.logger.Debug("dropping listen", "origin", origin.String(), "artist", l.Artist(), "title", l.Track())
			return Result{Outcome: OutcomeSkipped}, nil
		}
		s := c.base(l)
		s.SpotifyTrackURI = history.StringPtr(l.SpotifyURI())
		return Result{Stream: s, Outcome: OutcomeSpotify}, nil
	}

	if uri := l.SpotifyURI(); uri != "" {
		s := c.base(l)
		s.SpotifyTrackURI = history.StringPtr(uri)
		return Result{Stream: s, Outcome: OutcomeEmbeddedURI}, nil
	}

	s := c.base(l)
	res, err := c.resolver.Resolve(ctx, l.Artist(), l.Track())
	out := Result{
		Stream:   s,
		Outcome:  OutcomeUnresolved,
		APICalls: res.APICalls,
		CacheHit: res.FromCache,
	}

	switch {
	case err == nil:
	case errors.Is(err, resolve.ErrLookupFailed):
		c.logger.Warn("lookup failed, forwarding unresolved", "artist", l.Artist(), "title", l.Track(), "error", err)
		out.LookupErr = err
		return out, nil
	case errors.Is(err, spotify.ErrUnauthorized):
		return out, err
	default:
		return out, fmt.Errorf("resolving %q by %q: %w", l.Track(), l.Artist(), err)
	}

	if !res.Found {
		return out, nil
	}

	out.Outcome = OutcomeResolved
	out.Stream.SpotifyTrackURI = history.StringPtr(res.TrackURI)
	if res.AlbumName != "" {
		out.Stream.MasterMetadataAlbumAlbumName = res.AlbumName
	}
	if out.Stream.MsPlayed == 0 {
		out.Stream.MsPlayed = res.DurationMs
	}
	return out, nil
}

// base builds the entry fields shared by every outcome. The track URI is
// left null.
func (c *Converter) base(l listenbrainz.Listen) history.Stream {
	return history.Stream{
		Ts:                            history.FormatTimestamp(l.Time()),
		Username:                      c.opts.Username,
		Platform:                      history.Platform,
		MsPlayed:                      l.DurationMs(),
		ConnCountry:                   c.opts.CountryCode,
		MasterMetadataTrackName:       l.Track(),
		MasterMetadataAlbumArtistName: l.Artist(),
		MasterMetadataAlbumAlbumName:  l.Release(),
		ReasonStart:                   history.ReasonStartTrackDone,
		Offline:                       true,
		OfflineTimestamp:              l.ListenedAt * 1000,
	}
}
