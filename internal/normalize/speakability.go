package normalize

import (
	"regexp"
	"strings"
)

var (
	htmlTagRegex      = regexp.MustCompile(`<[^>]+>`)
	dataURIRegex      = regexp.MustCompile(`data:[a-zA-Z0-9/+.;=-]+;base64,[A-Za-z0-9+/=]+`)
	mdImageRegex      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	bracketImageRegex = regexp.MustCompile(`\[Image:[^\]]*\](\([^)]*\))?`)
	imageURLRegex     = regexp.MustCompile(`https?://\S+\.(?:png|jpe?g|gif|svg|webp|bmp)\b`)
	longURLRegex      = regexp.MustCompile(`https://\S{72,}|http://\S{73,}`) // token length >= 80 incl. scheme
	whitespaceRegex   = regexp.MustCompile(`\s+`)
)

// StripNonSpeech removes HTML tags, data URIs, Markdown image syntax,
// bracketed image references, raw image URLs, and over-long URL tokens
// from a paragraph, then collapses whitespace, per spec.md §4.1.
func StripNonSpeech(paragraph string) string {
	s := paragraph
	s = htmlTagRegex.ReplaceAllString(s, " ")
	s = dataURIRegex.ReplaceAllString(s, " ")
	s = mdImageRegex.ReplaceAllString(s, " ")
	s = bracketImageRegex.ReplaceAllString(s, " ")
	s = imageURLRegex.ReplaceAllString(s, " ")
	s = longURLRegex.ReplaceAllStringFunc(s, func(tok string) string {
		if len(tok) >= 80 {
			return " "
		}
		return tok
	})
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// IsSpeakable implements spec.md §4.1's speakability filter: at least
// three distinct word-like tokens (runs of 2+ Unicode letters).
func IsSpeakable(paragraph string) bool {
	matches := wordLikeTokens(paragraph)
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		seen[strings.ToLower(m)] = true
		if len(seen) >= 3 {
			return true
		}
	}
	return false
}

// FilterParagraphs applies StripNonSpeech + IsSpeakable + the
// MinParagraphLength floor, returning only paragraphs that survive all
// three, trimmed.
func FilterParagraphs(paragraphs []string) []string {
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		stripped := StripNonSpeech(p)
		if len(stripped) < MinParagraphLength {
			continue
		}
		if !IsSpeakable(stripped) {
			continue
		}
		out = append(out, stripped)
	}
	return out
}
