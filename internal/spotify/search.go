package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"
)

// maxSearchLimit is the largest page the search endpoint accepts.
const maxSearchLimit = 50

// SearchTracks runs a catalog track search and returns up to limit results
// in Spotify's relevance order. No results is not an error.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	result, err := c.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, classifyError("searching tracks", err)
	}

	if result == nil || result.Tracks == nil {
		return nil, nil
	}

	tracks := make([]Track, 0, len(result.Tracks.Tracks))
	for _, ft := range result.Tracks.Tracks {
		tracks = append(tracks, convertTrack(ft))
	}
	return tracks, nil
}

// convertTrack converts a Spotify FullTrack to Track.
func convertTrack(ft spotify.FullTrack) Track {
	artists := make([]string, len(ft.Artists))
	for i, a := range ft.Artists {
		artists[i] = a.Name
	}

	return Track{
		URI:        string(ft.URI),
		Name:       ft.Name,
		Artists:    artists,
		Album:      ft.Album.Name,
		DurationMs: int64(ft.Duration),
	}
}
