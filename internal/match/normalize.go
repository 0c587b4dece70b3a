// Package match provides string normalization and candidate scoring used to
// pair ListenBrainz listens with Spotify catalog tracks.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	featPattern       = regexp.MustCompile(`\s*\(feat\.?.*?\)`)
	bracketPattern    = regexp.MustCompile(`\s*\[.*?\]`)
	groupPattern      = regexp.MustCompile(`\s*\(.*?\)|\s*\[.*?\]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize lowercases s, drops "(feat. ...)" and "[...]" groups, folds
// diacritics and keeps only letters, digits and single spaces.
// Normalize is idempotent.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = featPattern.ReplaceAllString(s, "")
	s = bracketPattern.ReplaceAllString(s, "")
	s = foldDiacritics(s)

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		}
	}

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(sb.String(), " "))
}

// StripGroups removes every parenthesized and bracketed group from s.
func StripGroups(s string) string {
	return strings.TrimSpace(groupPattern.ReplaceAllString(s, ""))
}

// foldDiacritics maps "é" to "e" and so on. Only marks from the combining
// diacritical block are removed so kana voicing marks survive. The
// transformer is stateful so a fresh chain is built per call.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(isCombiningDiacritic)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isCombiningDiacritic(r rune) bool {
	return r >= 0x0300 && r <= 0x036f
}
