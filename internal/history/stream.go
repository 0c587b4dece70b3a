// Package history models and writes Spotify's extended streaming history
// export format.
package history

import "time"

// Platform is the platform value written for converted listens.
const Platform = "ListenBrainz Importer"

// TimestampFormat is the layout Spotify uses for the ts field.
const TimestampFormat = "2006-01-02T15:04:05Z"

// ReasonStart values used by the converter.
const (
	ReasonStartTrackDone = "trackdone"
)

// Stream is one entry of Spotify's extended streaming history.
// Field order matches Spotify's export.
type Stream struct {
	Ts                            string  `json:"ts"`
	Username                      string  `json:"username"`
	Platform                      string  `json:"platform"`
	MsPlayed                      int64   `json:"ms_played"`
	ConnCountry                   string  `json:"conn_country"`
	IPAddrDecrypted               *string `json:"ip_addr_decrypted"`
	UserAgentDecrypted            *string `json:"user_agent_decrypted"`
	MasterMetadataTrackName       string  `json:"master_metadata_track_name"`
	MasterMetadataAlbumArtistName string  `json:"master_metadata_album_artist_name"`
	MasterMetadataAlbumAlbumName  string  `json:"master_metadata_album_album_name"`
	SpotifyTrackURI               *string `json:"spotify_track_uri"`
	EpisodeName                   *string `json:"episode_name"`
	EpisodeShowName               *string `json:"episode_show_name"`
	SpotifyEpisodeURI             *string `json:"spotify_episode_uri"`
	ReasonStart                   string  `json:"reason_start"`
	ReasonEnd                     *string `json:"reason_end"`
	Shuffle                       bool    `json:"shuffle"`
	Skipped                       bool    `json:"skipped"`
	Offline                       bool    `json:"offline"`
	OfflineTimestamp              int64   `json:"offline_timestamp"`
	IncognitoMode                 bool    `json:"incognito_mode"`
}

// FormatTimestamp renders t the way Spotify does: UTC, second precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Time parses the ts field. It returns the zero time if ts is malformed.
func (s Stream) Time() time.Time {
	t, _ := time.Parse(TimestampFormat, s.Ts)
	return t
}

// TrackURI returns the track URI or "".
func (s Stream) TrackURI() string {
	if s.SpotifyTrackURI == nil {
		return ""
	}
	return *s.SpotifyTrackURI
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
