package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/kestrelread/voxread/internal/article"
)

// mockBackend is a manually-driven Backend for deterministic tests: Speak
// stores the pending callback instead of firing it, so the test controls
// exactly when OnEnd/OnError is delivered (mirroring spec.md scenario 2's
// "stale onEnd delivered after skipForward" setup).
type mockBackend struct {
	mu      sync.Mutex
	name    string
	pending Callbacks
	dispatchCount int
	rate    float64
}

func (b *mockBackend) Speak(text string, lang article.Lang, rate float64, v *Voice, cb Callbacks) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = cb
	b.dispatchCount++
}
func (b *mockBackend) Pause()              {}
func (b *mockBackend) Resume(f func())     {}
func (b *mockBackend) Cancel()             {}
func (b *mockBackend) SetRate(r float64)   { b.rate = r }
func (b *mockBackend) Dispose()            {}
func (b *mockBackend) Name() string        { return b.name }

func (b *mockBackend) fireEnd() {
	b.mu.Lock()
	cb := b.pending.OnEnd
	b.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func splitNaive(p string) []string { return []string{p} }

func splitTwoSentences(p string) []string {
	return []string{"Hello world.", "Goodbye world."}
}

func buildArticle(t *testing.T, paragraphs []string) *article.Article {
	t.Helper()
	a, err := article.New("t", paragraphs, splitNaive, article.LangEnglish)
	if err != nil {
		t.Fatalf("article.New: %v", err)
	}
	return a
}

func TestBasicPlayThrough(t *testing.T) {
	platform := &mockBackend{name: "platform"}
	e := New(nil, platform, nil, nil, nil)

	art, err := article.New("t", []string{"Hello world. Goodbye world.", "Second paragraph here."},
		func(p string) []string {
			if p == "Hello world. Goodbye world." {
				return []string{"Hello world.", "Goodbye world."}
			}
			return []string{p}
		}, article.LangEnglish)
	if err != nil {
		t.Fatalf("article.New: %v", err)
	}
	e.Load(art, nil)

	var ends int
	var done bool
	e.SetHooks(Hooks{
		OnArticleEnd: func() { done = true },
	})

	e.Play()
	for i := 0; i < 3; i++ {
		if e.State() == StateDone {
			break
		}
		platform.fireEnd()
		ends++
	}
	if e.State() != StateDone {
		t.Fatalf("expected done state, got %v", e.State())
	}
	if !done {
		t.Fatal("expected OnArticleEnd to fire")
	}
	if ends != 3 {
		t.Fatalf("expected 3 clip completions, got %d", ends)
	}
}

func TestSkipDuringFlightIgnoresStaleOnEnd(t *testing.T) {
	platform := &mockBackend{name: "platform"}
	e := New(nil, platform, nil, nil, nil)
	a := buildArticle(t, []string{
		"150chars-A-paragraph-one", "150chars-B-paragraph-two", "150chars-C-paragraph-three",
	})
	e.Load(a, nil)
	e.Play() // dispatches sentence (0,0)

	staleEnd := platform.pending.OnEnd

	e.SkipForward() // cursor -> (1, 0), gen++, new dispatch in flight

	staleEnd() // deliver the now-stale onEnd for paragraph 0

	c := e.Cursor()
	if c.Paragraph != 1 || c.Sentence != 0 {
		t.Fatalf("expected cursor at (1,0) after stale onEnd, got (%d,%d)", c.Paragraph, c.Sentence)
	}
	if platform.dispatchCount != 2 {
		t.Fatalf("expected exactly 2 dispatches (initial + post-skip), got %d", platform.dispatchCount)
	}
}

func TestDeadManWatchdogStopsOnStall(t *testing.T) {
	platform := &mockBackend{name: "platform"}
	e := New(nil, platform, nil, nil, nil)
	a := buildArticle(t, []string{"one sentence paragraph with no continuation at all"})
	e.Load(a, nil)

	var errs int
	e.SetHooks(Hooks{OnError: func(*ExternalError) { errs++ }})

	e.Play()
	// Simulate 31s of silence by driving the watchdog directly.
	e.deadMan.lastProgress = time.Now().Add(-31 * time.Second)
	e.deadMan.check(time.Now())

	if e.State() != StateIdle {
		t.Fatalf("expected idle after stall, got %v", e.State())
	}
	if errs != 1 {
		t.Fatalf("expected exactly 1 stall error, got %d", errs)
	}
}

func TestSkipForwardAtLastParagraphIsNoop(t *testing.T) {
	platform := &mockBackend{name: "platform"}
	e := New(nil, platform, nil, nil, nil)
	a := buildArticle(t, []string{"only paragraph in this article right here"})
	e.Load(a, nil)
	genBefore := e.gen
	e.SkipForward()
	if e.gen != genBefore {
		t.Fatal("expected no generation bump on no-op skipForward")
	}
}

func TestSkipSentenceBackwardAtOriginIsNoop(t *testing.T) {
	platform := &mockBackend{name: "platform"}
	e := New(nil, platform, nil, nil, nil)
	a := buildArticle(t, []string{"first paragraph text here", "second paragraph text here"})
	e.Load(a, nil)
	genBefore := e.gen
	e.SkipSentenceBackward()
	c := e.Cursor()
	if c != article.Zero || e.gen != genBefore {
		t.Fatal("expected no-op at (0,0)")
	}
}

func TestEmptyParagraphListLoadThenPlayIsNoop(t *testing.T) {
	platform := &mockBackend{name: "platform"}
	e := New(nil, platform, nil, nil, nil)
	a := buildArticle(t, nil)
	e.Load(a, nil)
	if e.State() != StateIdle {
		t.Fatalf("expected idle after loading empty article, got %v", e.State())
	}
	e.Play()
	if e.State() != StateDone {
		t.Fatalf("expected play() on empty article to go straight to done, got %v", e.State())
	}
}
