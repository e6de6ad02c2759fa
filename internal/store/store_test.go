package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "voxread.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestContentStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)

	doc := ContentDocument{
		Title:            "Test Article",
		Markdown:         "# Test Article\n\nBody.",
		Paragraphs:       []string{"Body."},
		TextContent:      "Body.",
		Lang:             "en",
		HTMLLang:         "en-US",
		SiteName:         "example.com",
		Excerpt:          "Body.",
		WordCount:        1,
		EstimatedMinutes: 1,
	}
	s.SaveContent("item-1", doc)

	got := s.LoadContent("item-1")
	if got == nil {
		t.Fatalf("LoadContent returned nil after save")
	}
	if got.Title != doc.Title || got.WordCount != doc.WordCount {
		t.Errorf("LoadContent = %+v, want %+v", got, doc)
	}

	s.DeleteContent("item-1")
	if got := s.LoadContent("item-1"); got != nil {
		t.Errorf("LoadContent after delete = %+v, want nil", got)
	}
}

func TestContentStoreMissingReturnsNil(t *testing.T) {
	s := openTestStore(t)
	if got := s.LoadContent("does-not-exist"); got != nil {
		t.Errorf("LoadContent for missing id = %+v, want nil", got)
	}
}

func TestContentStoreClear(t *testing.T) {
	s := openTestStore(t)
	s.SaveContent("a", ContentDocument{Title: "A"})
	s.SaveContent("b", ContentDocument{Title: "B"})
	s.ClearContent()
	if s.LoadContent("a") != nil || s.LoadContent("b") != nil {
		t.Errorf("expected both items gone after ClearContent")
	}
}

func TestContentStoreSaveOverwrites(t *testing.T) {
	s := openTestStore(t)
	s.SaveContent("item-1", ContentDocument{Title: "First"})
	s.SaveContent("item-1", ContentDocument{Title: "Second"})
	got := s.LoadContent("item-1")
	if got == nil || got.Title != "Second" {
		t.Errorf("LoadContent = %+v, want Title=Second", got)
	}
}
