package db

import "time"

// CachedTrack is one resolved (or unresolvable) track identity.
type CachedTrack struct {
	Key        string
	Found      bool
	TrackURI   string
	AlbumName  string
	DurationMs int64
	CachedAt   time.Time
}
