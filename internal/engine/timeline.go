package engine

import (
	"time"

	"github.com/kestrelread/voxread/internal/article"
)

// CPS1 is the characters-per-second rate at 1x playback (spec.md §4.6).
const CPS1 = 14.0

// Timeline computes duration/position/seekToTime estimates from the
// article's sentence shadow and the current playback rate, per spec.md
// §4.6's character-count model.
type Timeline struct {
	art  *article.Article
	rate float64
}

// NewTimeline builds a Timeline for art at the given rate (must already
// be clamped to [0.5, 3.0]).
func NewTimeline(art *article.Article, rate float64) *Timeline {
	return &Timeline{art: art, rate: rate}
}

// SetRate updates the rate used by subsequent estimates.
func (t *Timeline) SetRate(rate float64) { t.rate = rate }

func (t *Timeline) charsPerSecond() float64 {
	rate := t.rate
	if rate <= 0 {
		rate = 1
	}
	return CPS1 * rate
}

// Duration returns the estimated total playback duration of the article.
func (t *Timeline) Duration() time.Duration {
	var totalChars int
	for p := 0; p < t.art.ParagraphCount(); p++ {
		for s := 0; s < t.art.SentenceCount(p); s++ {
			totalChars += len([]rune(t.art.Sentence(p, s)))
		}
	}
	return secondsToDuration(float64(totalChars) / t.charsPerSecond())
}

// Position returns the estimated elapsed time at cursor (p, s) — the sum
// of all sentence lengths strictly before (p, s) in reading order.
func (t *Timeline) Position(c article.Cursor) time.Duration {
	var chars int
	for p := 0; p < t.art.ParagraphCount(); p++ {
		for s := 0; s < t.art.SentenceCount(p); s++ {
			if p > c.Paragraph || (p == c.Paragraph && s >= c.Sentence) {
				goto done
			}
			chars += len([]rune(t.art.Sentence(p, s)))
		}
	}
done:
	return secondsToDuration(float64(chars) / t.charsPerSecond())
}

// SeekToTime performs spec.md §4.6's inverse mapping: walk paragraphs in
// order accumulating characters, stop at the first cursor whose
// accumulated character count is >= T*CPS1*rate. Clamps to the last
// paragraph if T is past the end.
func (t *Timeline) SeekToTime(target time.Duration) article.Cursor {
	targetChars := target.Seconds() * t.charsPerSecond()
	var chars float64
	var last article.Cursor
	any := false
	for p := 0; p < t.art.ParagraphCount(); p++ {
		for s := 0; s < t.art.SentenceCount(p); s++ {
			any = true
			last = article.Cursor{Paragraph: p, Sentence: s}
			chars += float64(len([]rune(t.art.Sentence(p, s))))
			if chars >= targetChars {
				return last
			}
		}
	}
	if !any {
		return article.Zero
	}
	return last
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds * float64(time.Second))
}
