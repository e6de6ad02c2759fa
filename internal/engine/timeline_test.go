package engine

import (
	"testing"
	"time"

	"github.com/kestrelread/voxread/internal/article"
)

func TestTimelineDurationAndPosition(t *testing.T) {
	a := buildArticleFor(t, []string{"1234567890", "abcdefghij"}) // 10 chars each
	tl := NewTimeline(a, 1.0)
	wantDuration := time.Duration(20.0 / CPS1 * float64(time.Second))
	if tl.Duration() != wantDuration {
		t.Fatalf("duration: got %v want %v", tl.Duration(), wantDuration)
	}
	pos := tl.Position(article.Cursor{Paragraph: 1, Sentence: 0})
	wantPos := time.Duration(10.0 / CPS1 * float64(time.Second))
	if pos != wantPos {
		t.Fatalf("position: got %v want %v", pos, wantPos)
	}
}

func TestTimelineSeekToTimeMonotone(t *testing.T) {
	a := buildArticleFor(t, []string{"1234567890", "abcdefghij", "klmnopqrst"})
	tl := NewTimeline(a, 1.0)
	c := tl.SeekToTime(tl.Duration())
	last := article.Cursor{Paragraph: 2, Sentence: 0}
	if c != last {
		t.Fatalf("seeking to full duration: got %v want %v", c, last)
	}
}

func buildArticleFor(t *testing.T, paragraphs []string) *article.Article {
	t.Helper()
	a, err := article.New("t", paragraphs, func(p string) []string { return []string{p} }, article.LangEnglish)
	if err != nil {
		t.Fatalf("article.New: %v", err)
	}
	return a
}
