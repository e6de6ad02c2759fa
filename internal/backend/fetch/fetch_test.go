package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kestrelread/voxread/internal/article"
	"github.com/kestrelread/voxread/internal/engine"
)

type stubFetcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *stubFetcher) FetchClip(ctx context.Context, text string, lang article.Lang) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return []byte("clip:" + text), f.err
}

type stubPlayer struct {
	mu    sync.Mutex
	plays int
}

func (p *stubPlayer) Play(pcm []byte, onEnd func(), onError func(error)) {
	p.mu.Lock()
	p.plays++
	p.mu.Unlock()
	go onEnd()
}
func (p *stubPlayer) Pause()            {}
func (p *stubPlayer) Resume()           {}
func (p *stubPlayer) Stop()             {}
func (p *stubPlayer) SetRate(r float64) {}

func TestFetchBackendSpeaksAndEnds(t *testing.T) {
	fetcher := &stubFetcher{}
	player := &stubPlayer{}
	b := New(fetcher, player, nil)

	done := make(chan struct{})
	b.Speak("hello", article.LangEnglish, 1.0, nil, engine.Callbacks{
		OnEnd:   func() { close(done) },
		OnError: func(bool) { t.Fatal("unexpected error") },
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnEnd")
	}
}

func TestFetchBackendErrorTriggersFallback(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("network down")}
	player := &stubPlayer{}
	b := New(fetcher, player, nil)

	done := make(chan bool, 1)
	b.Speak("hello", article.LangEnglish, 1.0, nil, engine.Callbacks{
		OnEnd:   func() { t.Fatal("unexpected OnEnd") },
		OnError: func(shouldFallback bool) { done <- shouldFallback },
	})

	select {
	case fb := <-done:
		if !fb {
			t.Fatal("expected shouldFallback=true on fetch failure")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnError")
	}
}

func TestPrefetchDeduplicatesByKey(t *testing.T) {
	fetcher := &stubFetcher{}
	player := &stubPlayer{}
	b := New(fetcher, player, nil)

	b.Prefetch([]string{"a", "b", "a"}, article.LangEnglish)
	time.Sleep(50 * time.Millisecond)

	fetcher.mu.Lock()
	calls := fetcher.calls
	fetcher.mu.Unlock()
	if calls != 2 {
		t.Fatalf("expected 2 unique fetch calls, got %d", calls)
	}
}
