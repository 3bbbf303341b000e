// Package lexical turns free text into comparable token sets and scores their overlap.
package lexical

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTokenLength is the minimum token length in characters; shorter words carry little signal
// in report text ("de", "com", "2cm").
const MinTokenLength = 4

// TokenSet is a set of lowercase tokens.
type TokenSet map[string]struct{}

// Tokenize lowercases text, turns every character that is not a letter, digit, underscore or
// whitespace into a space, splits on whitespace and keeps distinct tokens of at least
// MinTokenLength characters.
func Tokenize(text string) TokenSet {
	set := make(TokenSet)
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	for _, word := range strings.Fields(normalized) {
		if utf8.RuneCountInString(word) >= MinTokenLength {
			set[word] = struct{}{}
		}
	}
	return set
}

// Has reports whether token is in the set.
func (s TokenSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b TokenSet) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	intersection := 0
	for t := range small {
		if large.Has(t) {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
