package match

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Hello World", "hello world"},
		{"drops featured group", "Song (feat. Someone)", "song"},
		{"drops featuring group", "Song (featuring Someone Else)", "song"},
		{"drops brackets", "Track [Live]", "track"},
		{"keeps other parens as words", "Song (Remix)", "song remix"},
		{"folds diacritics", "Beyoncé", "beyonce"},
		{"strips punctuation", "AC/DC", "acdc"},
		{"strips apostrophes", "Don't Stop Me Now", "dont stop me now"},
		{"collapses whitespace", "  Multiple   Spaces  ", "multiple spaces"},
		{"keeps non-latin letters", "ハルジオン", "ハルジオン"},
		{"empty", "", ""},
		{"punctuation only", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := Normalize(got); again != got {
				t.Errorf("Normalize not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestStripGroups(t *testing.T) {
	got := StripGroups("Song (Live) [2011 Remastered]")
	if got != "Song" {
		t.Errorf("StripGroups() = %q, want %q", got, "Song")
	}
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name   string
		artist string
		title  string
		want   []Candidate
	}{
		{
			name:   "featured artist and groups",
			artist: "Artist feat. Guest",
			title:  "Song (Live) [2011 Remastered]",
			want: []Candidate{
				{Artist: "artist feat guest", Title: "song live"},
				{Artist: "", Title: "song live"},
				{Artist: "artist", Title: "song live"},
				{Artist: "artist feat guest", Title: "song"},
			},
		},
		{
			name:   "remastered suffix",
			artist: "Queen",
			title:  "Bohemian Rhapsody - Remastered 2011",
			want: []Candidate{
				{Artist: "queen", Title: "bohemian rhapsody remastered 2011"},
				{Artist: "", Title: "bohemian rhapsody remastered 2011"},
				{Artist: "queen", Title: "bohemian rhapsody 2011"},
			},
		},
		{
			name:   "empty title yields nothing",
			artist: "Artist",
			title:  "!!!",
			want:   []Candidate{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Candidates(tt.artist, tt.title)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Candidates() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCandidateKey(t *testing.T) {
	c := Candidate{Artist: "queen", Title: "bohemian rhapsody"}
	if got := c.Key(); got != "queen|bohemian rhapsody" {
		t.Errorf("Key() = %q", got)
	}
}

func TestQueries(t *testing.T) {
	got := Queries(Candidate{Artist: "queen", Title: "bohemian rhapsody"})
	want := []string{
		"bohemian rhapsody artist:queen",
		"bohemian rhapsody queen",
		"track:bohemian rhapsody",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Queries() = %v, want %v", got, want)
	}

	got = Queries(Candidate{Title: "bohemian rhapsody"})
	want = []string{"track:bohemian rhapsody", "bohemian rhapsody"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Queries() title only = %v, want %v", got, want)
	}
}

func TestScore(t *testing.T) {
	c := Candidate{Artist: "queen", Title: "bohemian rhapsody"}

	tests := []struct {
		name    string
		title   string
		artists []string
		want    int
	}{
		{"exact", "Bohemian Rhapsody", []string{"Queen"}, 7},
		{"partial title", "Bohemian Rhapsody - Live", []string{"Queen"}, 4},
		{"artist only", "Another One Bites the Dust", []string{"Queen"}, 3},
		{"title only", "Bohemian Rhapsody", []string{"Panic! At The Disco"}, 4},
		{"shared artist credit", "Bohemian Rhapsody", []string{"Queen & David Bowie"}, 5},
		{"nothing", "Something Else", []string{"Someone"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(c, tt.title, tt.artists); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreTitleOnlyIgnoresArtist(t *testing.T) {
	c := Candidate{Title: "bohemian rhapsody"}
	if got := Score(c, "Bohemian Rhapsody", []string{"Anyone"}); got != scoreTitleExact {
		t.Errorf("Score() = %d, want %d", got, scoreTitleExact)
	}
}

func TestBest(t *testing.T) {
	type track struct {
		title   string
		artists []string
	}
	c := Candidate{Artist: "queen", Title: "bohemian rhapsody"}

	tests := []struct {
		name   string
		tracks []track
		want   int
	}{
		{"empty", nil, -1},
		{"exact match wins over earlier partial", []track{
			{"Bohemian Rhapsody - Live", []string{"Queen"}},
			{"Bohemian Rhapsody", []string{"Queen"}},
		}, 1},
		{"tie keeps catalog order", []track{
			{"Bohemian Rhapsody", []string{"Queen"}},
			{"Bohemian Rhapsody", []string{"Queen"}},
		}, 0},
		{"no signal falls back to first", []track{
			{"Something", []string{"Someone"}},
			{"Other", []string{"Else"}},
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Best(c, len(tt.tracks), func(i int) (string, []string) {
				return tt.tracks[i].title, tt.tracks[i].artists
			})
			if got != tt.want {
				t.Errorf("Best() = %d, want %d", got, tt.want)
			}
		})
	}
}
