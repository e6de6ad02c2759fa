// Package normalize turns raw input (HTML, Markdown, plain text, PDF text
// items, EPUB chapters) into speakable paragraphs, grounded on the
// teacher's tts/sentence/parser.go splitter and pkg/tts/markdown_processor.go
// block extraction, generalised to spec.md §4.1's exact thresholds.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

// Length thresholds from spec.md §4.1.
const (
	MinSentenceLength   = 40
	MaxUtteranceLength  = 200
	MinParagraphLength  = 20
	MinTTSParagraphLen  = 80
)

var sentenceEndRegex = regexp.MustCompile(`([.!?])(\s+)`)

// abbreviations is the closed set of trailing tokens that must not be
// treated as a sentence boundary, adapted from the teacher's
// tts/sentence/parser.go makeAbbreviationMap.
var abbreviations = buildAbbreviations()

func buildAbbreviations() map[string]bool {
	list := []string{
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "ph.d", "m.d",
		"etc", "vs", "inc", "ltd", "co", "corp",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
		"mon", "tue", "tues", "wed", "thu", "thurs", "fri", "sat", "sun",
		"ave", "blvd", "rd",
		"u.s", "u.k", "u.n", "e.u", "n.y", "l.a",
		"approx", "fig", "no", "vol", "pg", "pp",
	}
	m := make(map[string]bool, len(list))
	for _, a := range list {
		m[a] = true
	}
	return m
}

// SplitSentences implements spec.md §4.1's sentence splitter: split on
// terminal punctuation, merge across abbreviations/decimals/lowercase
// continuations, then merge undersized fragments up to MaxUtteranceLength.
func SplitSentences(paragraph string) []string {
	paragraph = strings.TrimSpace(paragraph)
	if paragraph == "" {
		return nil
	}

	pieces := splitOnPunctuation(paragraph)
	merged := mergeAbbreviationsAndContinuations(pieces)
	return mergeShortSentences(merged)
}

// splitOnPunctuation splits on [.!?] followed by whitespace, keeping the
// punctuation attached to the preceding piece (step 1).
func splitOnPunctuation(text string) []string {
	var out []string
	last := 0
	locs := sentenceEndRegex.FindAllStringSubmatchIndex(text, -1)
	for _, loc := range locs {
		// loc[2]:loc[3] is the punctuation mark, loc[4]:loc[5] the whitespace run.
		end := loc[3]
		piece := strings.TrimSpace(text[last:end])
		if piece != "" {
			out = append(out, piece)
		}
		last = loc[5]
	}
	if last < len(text) {
		tail := strings.TrimSpace(text[last:])
		if tail != "" {
			out = append(out, tail)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

// mergeAbbreviationsAndContinuations implements step 2: merge current+next
// when current ends in a recognised abbreviation, a decimal-number dot, or
// when next does not start with an uppercase letter.
func mergeAbbreviationsAndContinuations(pieces []string) []string {
	if len(pieces) <= 1 {
		return pieces
	}
	var out []string
	current := pieces[0]
	for i := 1; i < len(pieces); i++ {
		next := pieces[i]
		if shouldMergeContinuation(current, next) {
			current = current + " " + next
			continue
		}
		out = append(out, current)
		current = next
	}
	out = append(out, current)
	return out
}

func shouldMergeContinuation(current, next string) bool {
	if endsWithAbbreviation(current) {
		return true
	}
	if endsWithDecimalDot(current) && startsWithDigit(next) {
		return true
	}
	if next == "" {
		return true
	}
	r := []rune(next)[0]
	if !isUpperLetter(r) {
		return true
	}
	return false
}

func endsWithAbbreviation(s string) bool {
	if !strings.HasSuffix(s, ".") {
		return false
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return false
	}
	last := strings.ToLower(strings.TrimSuffix(fields[len(fields)-1], "."))
	return abbreviations[last]
}

func endsWithDecimalDot(s string) bool {
	if !strings.HasSuffix(s, ".") {
		return false
	}
	trimmed := strings.TrimSuffix(s, ".")
	if trimmed == "" {
		return false
	}
	r := []rune(trimmed)[len([]rune(trimmed))-1]
	return unicode.IsDigit(r)
}

func startsWithDigit(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return unicode.IsDigit([]rune(s)[0])
}

func isUpperLetter(r rune) bool {
	return unicode.IsUpper(r)
}

// mergeShortSentences implements step 3: merge a sentence shorter than
// MinSentenceLength into the next one, so long as the combined length
// stays within MaxUtteranceLength.
func mergeShortSentences(sentences []string) []string {
	if len(sentences) == 0 {
		return nil
	}
	var out []string
	current := sentences[0]
	for i := 1; i < len(sentences); i++ {
		next := sentences[i]
		if len(current) < MinSentenceLength && len(current)+1+len(next) <= MaxUtteranceLength {
			current = current + " " + next
			continue
		}
		out = append(out, current)
		current = next
	}
	out = append(out, current)
	return out
}
