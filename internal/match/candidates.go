package match

import "strings"

// Candidate is a normalized (artist, title) pair to look up.
// An empty Artist means "search by title only".
type Candidate struct {
	Artist string
	Title  string
}

// Key returns the cache key for the candidate.
func (c Candidate) Key() string {
	return c.Artist + "|" + c.Title
}

// Score weights for Score.
const (
	scoreTitleExact   = 4
	scoreTitlePartial = 1
	scoreArtistExact  = 3
	scoreArtistShared = 1
)

// Candidates returns the lookup variants for a listen, most specific first:
// the full pair, title only, artist without featured guests, title without
// parenthesized groups and title without "remastered". Duplicates and
// variants with an empty title are dropped.
func Candidates(artist, title string) []Candidate {
	a := Normalize(artist)
	t := Normalize(title)

	variants := []Candidate{
		{Artist: a, Title: t},
		{Artist: "", Title: t},
		{Artist: leadArtist(a), Title: t},
		{Artist: a, Title: Normalize(StripGroups(title))},
		{Artist: a, Title: strings.Join(strings.Fields(strings.ReplaceAll(t, "remastered", "")), " ")},
	}

	seen := make(map[Candidate]bool, len(variants))
	out := make([]Candidate, 0, len(variants))
	for _, v := range variants {
		if v.Title == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Queries returns the search strings tried for a candidate, in order.
func Queries(c Candidate) []string {
	if c.Artist == "" {
		return []string{"track:" + c.Title, c.Title}
	}
	return []string{
		c.Title + " artist:" + c.Artist,
		c.Title + " " + c.Artist,
		"track:" + c.Title,
	}
}

// Score rates how well a catalog track matches c. Higher is better; zero
// means nothing but the search engine's word for it.
func Score(c Candidate, title string, artists []string) int {
	score := 0

	t := Normalize(title)
	switch {
	case t == c.Title:
		score += scoreTitleExact
	case strings.Contains(t, c.Title) || strings.Contains(c.Title, t):
		score += scoreTitlePartial
	}

	if c.Artist == "" {
		return score
	}

	best := 0
	for _, name := range artists {
		n := Normalize(name)
		switch {
		case n == c.Artist:
			best = max(best, scoreArtistExact)
		case n != "" && (strings.Contains(c.Artist, n) || strings.Contains(n, c.Artist)):
			best = max(best, scoreArtistShared)
		}
	}
	return score + best
}

// leadArtist strips featured artists from a normalized artist credit.
func leadArtist(a string) string {
	for _, sep := range []string{" feat", " ft "} {
		if i := strings.Index(a, sep); i > 0 {
			a = a[:i]
		}
	}
	return strings.TrimSpace(a)
}

// Best returns the index of the highest-scoring of n catalog tracks, where
// track(i) yields the i-th track's title and artists. Ties keep the
// catalog's order, so with no signal the first result wins. Returns -1 when
// n is zero.
func Best(c Candidate, n int, track func(i int) (title string, artists []string)) int {
	best, bestScore := -1, -1
	for i := range n {
		title, artists := track(i)
		if s := Score(c, title, artists); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}
