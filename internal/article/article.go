// Package article defines the canonical normalised document consumed by
// the playback engine: Article, the (paragraph, sentence) cursor, and the
// generation counter that guards reentrant cancellation.
package article

import (
	"errors"
	"fmt"
)

// Lang is the TTS voice-selection / request-encoding language.
type Lang string

const (
	LangEnglish  Lang = "en"
	LangRomanian Lang = "ro"
)

// ErrEmptyParagraph is returned by New when a paragraph is empty or
// contains no non-empty sentence once split.
var ErrEmptyParagraph = errors.New("article: paragraph has no speakable sentences")

// SentenceSplitter turns one paragraph into an ordered, non-empty list of
// sentence strings. internal/normalize supplies the concrete
// implementation; article only depends on the function shape so the two
// packages don't import each other.
type SentenceSplitter func(paragraph string) []string

// Article is the canonical normalised document. It is constructed once
// and never mutated afterward; translation produces a new Article rather
// than mutating this one in place (see DESIGN.md Open Question decisions).
type Article struct {
	Title            string
	Paragraphs       []string
	Markdown         string
	Lang             Lang
	HTMLLang         string
	SiteName         string
	Excerpt          string
	WordCount        int
	EstimatedMinutes int
	ResolvedURL      string

	// paragraphsSentences is the sentence-decomposed shadow, computed once
	// at construction time per spec.md §3 ("at load time, and discards the
	// raw list" — here Paragraphs is kept for display/markdown rendering,
	// but playback always walks paragraphsSentences).
	paragraphsSentences [][]string
}

// New validates paragraphs and splits each into sentences using split,
// building the Article's sentence shadow once. Every paragraph must be
// non-empty and yield at least one non-zero-length sentence.
func New(title string, paragraphs []string, split SentenceSplitter, lang Lang) (*Article, error) {
	if len(paragraphs) == 0 {
		return &Article{Title: title, Lang: lang}, nil
	}
	shadow := make([][]string, 0, len(paragraphs))
	for i, p := range paragraphs {
		if p == "" {
			return nil, fmt.Errorf("article: paragraph %d: %w", i, ErrEmptyParagraph)
		}
		sentences := split(p)
		if len(sentences) == 0 {
			return nil, fmt.Errorf("article: paragraph %d: %w", i, ErrEmptyParagraph)
		}
		nonEmpty := sentences[:0:0]
		for _, s := range sentences {
			if s != "" {
				nonEmpty = append(nonEmpty, s)
			}
		}
		if len(nonEmpty) == 0 {
			return nil, fmt.Errorf("article: paragraph %d: %w", i, ErrEmptyParagraph)
		}
		shadow = append(shadow, nonEmpty)
	}
	return &Article{
		Title:               title,
		Paragraphs:          paragraphs,
		Lang:                lang,
		paragraphsSentences: shadow,
	}, nil
}

// ParagraphCount returns the number of TTS paragraphs.
func (a *Article) ParagraphCount() int { return len(a.paragraphsSentences) }

// SentenceCount returns the number of sentences in paragraph p.
func (a *Article) SentenceCount(p int) int {
	if p < 0 || p >= len(a.paragraphsSentences) {
		return 0
	}
	return len(a.paragraphsSentences[p])
}

// Sentence returns the sentence text at (p, s). The caller must ensure the
// cursor is in range; Cursor.Valid should be checked upstream.
func (a *Article) Sentence(p, s int) string {
	return a.paragraphsSentences[p][s]
}

// IsNonRemote reports whether this Article came from a non-URL source
// (pasted text, local file, EPUB, PDF) per spec.md §3.
func (a *Article) IsNonRemote() bool { return a.ResolvedURL == "" }

// Cursor is the pair (p, s) naming the next (or currently playing)
// sentence. 0 <= p < |paragraphsSentences|, 0 <= s < |paragraphsSentences[p]|.
type Cursor struct {
	Paragraph int
	Sentence  int
}

// Zero is the initial cursor value (0, 0).
var Zero = Cursor{}

// AtEnd reports whether p has advanced past the last paragraph — the
// transient end-of-article cursor observed only inside the engine's
// speakCurrent loop, never externally visible at quiescence.
func (c Cursor) AtEnd(a *Article) bool { return c.Paragraph >= a.ParagraphCount() }

// Valid reports whether c names an existing sentence in a.
func (c Cursor) Valid(a *Article) bool {
	if c.Paragraph < 0 || c.Paragraph >= a.ParagraphCount() {
		return false
	}
	return c.Sentence >= 0 && c.Sentence < a.SentenceCount(c.Paragraph)
}

// Generation is a monotonically non-decreasing counter identifying a
// cohort of in-flight clips. Incrementing it invalidates every
// outstanding completion callback issued under an earlier value.
type Generation uint64
