// Package loader composes internal/proxyclient and internal/normalize
// into the "Article Controller" spec.md §6.4 refers to but does not
// fully specify: given a URL, pasted text, or local file, produce a
// ready-to-play *article.Article. It is the one place the Normaliser's
// several input modes (§4.1) get wired to a concrete source.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kestrelread/voxread/internal/article"
	"github.com/kestrelread/voxread/internal/engine"
	"github.com/kestrelread/voxread/internal/normalize"
	"github.com/kestrelread/voxread/internal/proxyclient"
)

// newParseEmptyError mirrors spec.md §6.6's parse_empty external error: no
// speakable paragraphs survived normalisation.
func newParseEmptyError() error {
	return &engine.ExternalError{Code: engine.ErrParseEmpty, Message: "article appears empty after parsing"}
}

// Loader resolves input sources into Articles.
type Loader struct {
	proxy *proxyclient.Client
}

// New builds a Loader. proxy may be nil if only local-file/plain-text
// loading is needed (no remote URL or PDF-proxy fetch).
func New(proxy *proxyclient.Client) *Loader {
	return &Loader{proxy: proxy}
}

// FromURL implements spec.md §6.3's remote content fetch, normalised
// through the HTML mode (§4.1), producing an Article whose ResolvedURL
// comes from the proxy's X-Final-URL header semantics (handled inside
// proxyclient.FetchContent).
func (l *Loader) FromURL(ctx context.Context, target string) (*article.Article, error) {
	if l.proxy == nil {
		return nil, fmt.Errorf("loader: no proxy client configured for remote fetch")
	}
	result, err := l.proxy.FetchContent(ctx, target, proxyclient.ContentModeHTML)
	if err != nil {
		return nil, err
	}
	paragraphs, err := normalize.FromHTML(string(result.Body))
	if err != nil {
		return nil, fmt.Errorf("loader: parse html: %w", err)
	}
	paragraphs = normalize.FilterParagraphs(paragraphs)
	if len(paragraphs) == 0 {
		return nil, newParseEmptyError()
	}
	art, err := article.New(title(paragraphs, target), paragraphs, normalize.SplitSentences, article.LangEnglish)
	if err != nil {
		return nil, err
	}
	art.ResolvedURL = result.FinalURL
	art.WordCount = wordCount(paragraphs)
	art.EstimatedMinutes = estimatedMinutes(art.WordCount)
	return art, nil
}

// FromPlainText implements spec.md §4.1's *Plain text* mode, for pasted
// content with no markup.
func (l *Loader) FromPlainText(titleHint, text string) (*article.Article, error) {
	paragraphs := normalize.FromPlainText(text)
	paragraphs = normalize.FilterParagraphs(paragraphs)
	if len(paragraphs) == 0 {
		return nil, newParseEmptyError()
	}
	art, err := article.New(title(paragraphs, titleHint), paragraphs, normalize.SplitSentences, article.LangEnglish)
	if err != nil {
		return nil, err
	}
	art.WordCount = wordCount(paragraphs)
	art.EstimatedMinutes = estimatedMinutes(art.WordCount)
	return art, nil
}

// FromFile dispatches on extension: .md (Markdown direct), .html/.htm
// (HTML mode), .epub (ZIP/EPUB mode), anything else as plain text.
// PDF is not handled here — spec.md's PDF mode takes pre-extracted text
// items, which have no file-extension entry point (see SPEC_FULL.md).
func (l *Loader) FromFile(path string) (*article.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read file: %w", err)
	}
	base := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		paragraphs := normalize.FilterParagraphs(normalize.FromMarkdownDirect(string(data)))
		if len(paragraphs) == 0 {
			return nil, newParseEmptyError()
		}
		art, err := article.New(title(paragraphs, base), paragraphs, normalize.SplitSentences, article.LangEnglish)
		if err != nil {
			return nil, err
		}
		art.Markdown = string(data)
		art.WordCount = wordCount(paragraphs)
		art.EstimatedMinutes = estimatedMinutes(art.WordCount)
		return art, nil
	case ".html", ".htm":
		paragraphs, err := normalize.FromHTML(string(data))
		if err != nil {
			return nil, fmt.Errorf("loader: parse html: %w", err)
		}
		paragraphs = normalize.FilterParagraphs(paragraphs)
		if len(paragraphs) == 0 {
			return nil, newParseEmptyError()
		}
		art, err := article.New(title(paragraphs, base), paragraphs, normalize.SplitSentences, article.LangEnglish)
		if err != nil {
			return nil, err
		}
		art.WordCount = wordCount(paragraphs)
		art.EstimatedMinutes = estimatedMinutes(art.WordCount)
		return art, nil
	case ".epub":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("loader: open epub: %w", err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("loader: stat epub: %w", err)
		}
		result, err := normalize.FromEPUB(f, info.Size())
		if err != nil {
			return nil, fmt.Errorf("loader: parse epub: %w", err)
		}
		paragraphs := normalize.FilterParagraphs(result.Paragraphs)
		if len(paragraphs) == 0 {
			return nil, newParseEmptyError()
		}
		bookTitle := result.Title
		if bookTitle == "" {
			bookTitle = title(paragraphs, base)
		}
		art, err := article.New(bookTitle, paragraphs, normalize.SplitSentences, article.LangEnglish)
		if err != nil {
			return nil, err
		}
		art.WordCount = wordCount(paragraphs)
		art.EstimatedMinutes = estimatedMinutes(art.WordCount)
		return art, nil
	default:
		return l.FromPlainText(base, string(data))
	}
}

func title(paragraphs []string, fallback string) string {
	if len(paragraphs) == 0 {
		return fallback
	}
	first := paragraphs[0]
	if utf8.RuneCountInString(first) <= 80 {
		return first
	}
	runes := []rune(first)
	return string(runes[:80]) + "…"
}

func wordCount(paragraphs []string) int {
	n := 0
	for _, p := range paragraphs {
		n += len(strings.Fields(p))
	}
	return n
}

// estimatedMinutes assumes a 200wpm reading rate, the common estimate the
// teacher's own markdown_processor.go-adjacent tooling elsewhere in the
// pack uses for "time to read" metadata.
func estimatedMinutes(words int) int {
	minutes := words / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
