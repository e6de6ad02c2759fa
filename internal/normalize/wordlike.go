package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/rangetable"
)

// latinAndExtended is the Unicode letter-range classification spec.md
// §4.1 asks for ("Latin + common accented ranges") for the speakability
// filter's word-like token test, built with golang.org/x/text/unicode/
// rangetable instead of a hand-rolled rune table, per the teacher's
// go.mod dependency set.
var latinAndExtended = rangetable.Merge(
	unicode.Latin,
	unicode.Mn, // combining marks riding on accented Latin letters
)

func isWordLetter(r rune) bool {
	return unicode.Is(latinAndExtended, r)
}

// wordLikeTokens splits s into runs of 2+ letters from latinAndExtended,
// the word-like token spec.md §4.1 defines.
func wordLikeTokens(s string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		if n := countRunes(cur.String()); n >= 2 {
			tokens = append(tokens, cur.String())
		}
		cur.Reset()
	}
	for _, r := range s {
		if isWordLetter(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func countRunes(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
