package queue

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kestrelread/voxread/internal/article"
	"github.com/kestrelread/voxread/internal/engine"
	"github.com/kestrelread/voxread/internal/normalize"
	"github.com/kestrelread/voxread/internal/store"
)

// fakeEngine is a minimal EnginePlayer recording calls, grounded on the
// teacher's own engine test doubles (e.g. tts/engines/mock).
type fakeEngine struct {
	mu        sync.Mutex
	loaded    []*article.Article
	playCount int
	stopCount int
}

func (f *fakeEngine) Load(art *article.Article, _ *engine.Voice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, art)
}

func (f *fakeEngine) Play() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playCount++
}

func (f *fakeEngine) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCount++
}

func newTestArticle(t *testing.T, title string) *article.Article {
	t.Helper()
	art, err := article.New(title, []string{"One sentence. Another one."}, normalize.SplitSentences, article.LangEnglish)
	if err != nil {
		t.Fatalf("article.New: %v", err)
	}
	return art
}

func openTestPersist(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "voxread.db"), nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddArticlePersistsLocalContent(t *testing.T) {
	persist := openTestPersist(t)
	eng := &fakeEngine{}
	c := New(persist, eng, nil, nil)

	art := newTestArticle(t, "Local Piece")
	item := c.AddArticle(art, "Local Piece", "")

	if item.URL != "" {
		t.Errorf("item.URL = %q, want empty (non-remote article)", item.URL)
	}
	if !item.IsLocal() {
		t.Errorf("item.IsLocal() = false, want true")
	}
	if persist.LoadContent(item.ID) == nil {
		t.Errorf("expected content saved under item id %q", item.ID)
	}

	items := c.Items()
	if len(items) != 1 || items[0].ID != item.ID {
		t.Errorf("Items() = %+v, want single item %q", items, item.ID)
	}
}

func TestAddArticleSkipsContentStoreForRemoteURL(t *testing.T) {
	persist := openTestPersist(t)
	c := New(persist, nil, nil, nil)

	art := newTestArticle(t, "Remote Piece")
	art.ResolvedURL = "https://example.com/article"
	item := c.AddArticle(art, "Remote Piece", "example.com")

	if item.IsLocal() {
		t.Errorf("item.IsLocal() = true, want false for a resolved URL")
	}
	if persist.LoadContent(item.ID) != nil {
		t.Errorf("expected no content saved for a remote article")
	}
}

func TestRemoveItemUnknownID(t *testing.T) {
	c := New(nil, nil, nil, nil)
	if err := c.RemoveItem("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveItem(missing) = %v, want ErrNotFound", err)
	}
}

func TestRemoveItemStopsEngineWhenCurrent(t *testing.T) {
	persist := openTestPersist(t)
	eng := &fakeEngine{}
	loadURL := func(ctx context.Context, url string) (*article.Article, error) {
		return newTestArticle(t, "Remote"), nil
	}
	c := New(persist, eng, loadURL, nil)

	art := newTestArticle(t, "Remote")
	art.ResolvedURL = "https://example.com/a"
	item := c.AddArticle(art, "Remote", "example.com")

	if err := c.PlayItem(context.Background(), item.ID); err != nil {
		t.Fatalf("PlayItem: %v", err)
	}
	if c.CurrentIndex() != 0 {
		t.Fatalf("CurrentIndex() = %d, want 0", c.CurrentIndex())
	}

	if err := c.RemoveItem(item.ID); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if c.CurrentIndex() != -1 {
		t.Errorf("CurrentIndex() after removing current item = %d, want -1", c.CurrentIndex())
	}
	if eng.stopCount == 0 {
		t.Errorf("expected engine.Stop() called when removing the current item")
	}
}

func TestRemoveItemBeforeCurrentShiftsIndex(t *testing.T) {
	persist := openTestPersist(t)
	c := New(persist, nil, nil, nil)

	a := c.AddArticle(newTestArticle(t, "A"), "A", "")
	_ = c.AddArticle(newTestArticle(t, "B"), "B", "")
	_ = c.AddArticle(newTestArticle(t, "C"), "C", "")

	// Manually promote index 2 ("C") to current without a real engine.
	c.mu.Lock()
	c.currentIndex = 2
	c.mu.Unlock()

	if err := c.RemoveItem(a.ID); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if c.CurrentIndex() != 1 {
		t.Errorf("CurrentIndex() after removing an earlier item = %d, want 1", c.CurrentIndex())
	}
}

func TestReorderRecoversCurrentIndex(t *testing.T) {
	persist := openTestPersist(t)
	c := New(persist, nil, nil, nil)

	a := c.AddArticle(newTestArticle(t, "A"), "A", "")
	b := c.AddArticle(newTestArticle(t, "B"), "B", "")

	c.mu.Lock()
	c.currentIndex = 1 // "B"
	c.mu.Unlock()

	c.Reorder([]Item{b, a})

	if c.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex() after reordering current item to front = %d, want 0", c.CurrentIndex())
	}
}

func TestClearAllStopsEngineAndWipesContent(t *testing.T) {
	persist := openTestPersist(t)
	eng := &fakeEngine{}
	c := New(persist, eng, nil, nil)

	item := c.AddArticle(newTestArticle(t, "Local"), "Local", "")
	c.ClearAll()

	if len(c.Items()) != 0 {
		t.Errorf("Items() after ClearAll = %+v, want empty", c.Items())
	}
	if c.CurrentIndex() != -1 {
		t.Errorf("CurrentIndex() after ClearAll = %d, want -1", c.CurrentIndex())
	}
	if persist.LoadContent(item.ID) != nil {
		t.Errorf("expected content store cleared by ClearAll")
	}
	if eng.stopCount == 0 {
		t.Errorf("expected engine.Stop() called by ClearAll")
	}
}

func TestPlayNextAndPreviousBounds(t *testing.T) {
	persist := openTestPersist(t)
	eng := &fakeEngine{}
	c := New(persist, eng, nil, nil)

	c.AddArticle(newTestArticle(t, "Local A"), "Local A", "")
	c.AddArticle(newTestArticle(t, "Local B"), "Local B", "")

	ctx := context.Background()
	if err := c.PlayItem(ctx, c.Items()[0].ID); err != nil {
		t.Fatalf("PlayItem: %v", err)
	}
	if err := c.PlayNext(ctx); err != nil {
		t.Fatalf("PlayNext: %v", err)
	}
	if c.CurrentIndex() != 1 {
		t.Fatalf("CurrentIndex() = %d, want 1", c.CurrentIndex())
	}
	if err := c.PlayNext(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("PlayNext past the end = %v, want ErrNotFound", err)
	}
	if err := c.PlayPrevious(ctx); err != nil {
		t.Fatalf("PlayPrevious: %v", err)
	}
	if c.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex() after PlayPrevious = %d, want 0", c.CurrentIndex())
	}
}

func TestHandleArticleEndNotifiesAndAutoAdvances(t *testing.T) {
	persist := openTestPersist(t)
	eng := &fakeEngine{}
	c := New(persist, eng, nil, nil)

	c.AddArticle(newTestArticle(t, "Local A"), "Local A", "")
	c.AddArticle(newTestArticle(t, "Local B"), "Local B", "")

	notified := make(chan string, 1)
	c.SetHooks(Hooks{OnUpNext: func(title string) { notified <- title }})

	ctx := context.Background()
	if err := c.PlayItem(ctx, c.Items()[0].ID); err != nil {
		t.Fatalf("PlayItem: %v", err)
	}

	c.HandleArticleEnd(ctx)

	select {
	case title := <-notified:
		if title != "Local B" {
			t.Errorf("OnUpNext title = %q, want Local B", title)
		}
	case <-time.After(time.Second):
		t.Fatal("OnUpNext was not called")
	}

	deadline := time.After(AutoAdvanceDelay + time.Second)
	for c.CurrentIndex() != 1 {
		select {
		case <-deadline:
			t.Fatalf("auto-advance did not complete, CurrentIndex() = %d", c.CurrentIndex())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestCancelAutoAdvancePreventsTransition(t *testing.T) {
	persist := openTestPersist(t)
	eng := &fakeEngine{}
	c := New(persist, eng, nil, nil)

	c.AddArticle(newTestArticle(t, "Local A"), "Local A", "")
	c.AddArticle(newTestArticle(t, "Local B"), "Local B", "")

	ctx := context.Background()
	if err := c.PlayItem(ctx, c.Items()[0].ID); err != nil {
		t.Fatalf("PlayItem: %v", err)
	}

	c.HandleArticleEnd(ctx)
	c.CancelAutoAdvance()

	time.Sleep(AutoAdvanceDelay + 100*time.Millisecond)
	if c.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex() after cancelled auto-advance = %d, want unchanged 0", c.CurrentIndex())
	}
}

func TestQueuePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voxread.db")

	s1, err := store.Open(path, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	c1 := New(s1, nil, nil, nil)
	c1.AddArticle(newTestArticle(t, "Local A"), "Local A", "")
	s1.Close()

	s2, err := store.Open(path, nil)
	if err != nil {
		t.Fatalf("store.Open (reopen): %v", err)
	}
	defer s2.Close()
	c2 := New(s2, nil, nil, nil)

	items := c2.Items()
	if len(items) != 1 || items[0].Title != "Local A" {
		t.Errorf("Items() after reopen = %+v, want single Local A item", items)
	}
}
