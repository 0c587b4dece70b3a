// Package listenbrainz reads listening history exported from ListenBrainz.
package listenbrainz

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// SpotifyService is the music_service value ListenBrainz records for listens
// imported from Spotify.
const SpotifyService = "spotify.com"

const (
	spotifyTrackURLPrefix = "open.spotify.com/track/"
	spotifyTrackURIPrefix = "spotify:track:"
)

// Origin tells where a listen was originally played.
type Origin int

const (
	// OriginOther is any listen not submitted through Spotify.
	OriginOther Origin = iota
	// OriginSpotify marks listens ListenBrainz imported from Spotify.
	OriginSpotify
)

func (o Origin) String() string {
	if o == OriginSpotify {
		return "spotify"
	}
	return "listenbrainz"
}

// Listen is one listening event from a ListenBrainz export.
type Listen struct {
	ListenedAt    int64         `json:"listened_at"`
	TrackMetadata TrackMetadata `json:"track_metadata"`
}

// TrackMetadata holds the submitted track description.
type TrackMetadata struct {
	ArtistName     string         `json:"artist_name"`
	TrackName      string         `json:"track_name"`
	ReleaseName    string         `json:"release_name,omitempty"`
	AdditionalInfo AdditionalInfo `json:"additional_info"`
}

// AdditionalInfo carries the optional fields this tool reads. ListenBrainz
// accepts arbitrary keys here; unknown ones are ignored.
type AdditionalInfo struct {
	MusicService     string `json:"music_service,omitempty"`
	MusicServiceName string `json:"music_service_name,omitempty"`
	SpotifyID        string `json:"spotify_id,omitempty"`
	DurationMs       Number `json:"duration_ms,omitempty"`
	Duration         Number `json:"duration,omitempty"` // seconds, older submitters
	OriginURL        string `json:"origin_url,omitempty"`
}

// Artist returns the trimmed artist name.
func (l Listen) Artist() string {
	return strings.TrimSpace(l.TrackMetadata.ArtistName)
}

// Track returns the trimmed track name.
func (l Listen) Track() string {
	return strings.TrimSpace(l.TrackMetadata.TrackName)
}

// Release returns the trimmed release (album) name.
func (l Listen) Release() string {
	return strings.TrimSpace(l.TrackMetadata.ReleaseName)
}

// Time returns the listen time in UTC.
func (l Listen) Time() time.Time {
	return time.Unix(l.ListenedAt, 0).UTC()
}

// Origin classifies the listen by the service it was played on.
func (l Listen) Origin() Origin {
	info := l.TrackMetadata.AdditionalInfo
	if strings.EqualFold(strings.TrimSpace(info.MusicService), SpotifyService) ||
		strings.EqualFold(strings.TrimSpace(info.MusicServiceName), "spotify") {
		return OriginSpotify
	}
	return OriginOther
}

// DurationMs returns the submitted track duration in milliseconds, or 0.
func (l Listen) DurationMs() int64 {
	info := l.TrackMetadata.AdditionalInfo
	if info.DurationMs > 0 {
		return int64(info.DurationMs)
	}
	if info.Duration > 0 {
		return int64(info.Duration) * 1000
	}
	return 0
}

// SpotifyURI returns the "spotify:track:<id>" URI embedded in the listen, or
// "" when the listen carries no usable Spotify track reference. spotify_id is
// preferred; origin_url is used when it links to an open.spotify.com track.
func (l Listen) SpotifyURI() string {
	info := l.TrackMetadata.AdditionalInfo
	if uri := TrackURI(info.SpotifyID); uri != "" {
		return uri
	}
	return TrackURI(info.OriginURL)
}

// TrackURI converts a Spotify track URL or URI into a "spotify:track:<id>" URI.
// Anything else yields "".
func TrackURI(ref string) string {
	ref = strings.TrimSpace(ref)

	var id string
	switch {
	case strings.HasPrefix(ref, spotifyTrackURIPrefix):
		id = strings.TrimPrefix(ref, spotifyTrackURIPrefix)
	case strings.Contains(ref, spotifyTrackURLPrefix):
		id = ref[strings.Index(ref, spotifyTrackURLPrefix)+len(spotifyTrackURLPrefix):]
		if i := strings.IndexAny(id, "?#/"); i >= 0 {
			id = id[:i]
		}
	default:
		return ""
	}

	if id == "" {
		return ""
	}
	return spotifyTrackURIPrefix + id
}

// Number is an integer that submitters send as a JSON number, a float or a
// quoted string. Values that are none of these decode to 0.
type Number int64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}
