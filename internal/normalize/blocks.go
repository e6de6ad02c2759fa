package normalize

import (
	"regexp"
	"strings"
)

var blankLineRegex = regexp.MustCompile(`\n\s*\n+`)

// SplitBlankLines splits text on runs of blank lines, trimming each block.
func SplitBlankLines(text string) []string {
	raw := blankLineRegex.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, b := range raw {
		b = strings.TrimSpace(b)
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}

// SentenceGroupFallback implements the sentence-group-of-3 fallback: split
// the whole text into sentences, group every three into one paragraph.
// Per spec.md §9's Open Question, a final group with fewer than three
// sentences is KEPT (not dropped) — it still goes through FilterParagraphs
// downstream, so an unspeakably short trailing group is removed there
// rather than here, which is the more permissive and easier-to-test
// policy of the two the spec allows.
func SentenceGroupFallback(text string) []string {
	sentences := SplitSentences(text)
	var groups []string
	for i := 0; i < len(sentences); i += 3 {
		end := i + 3
		if end > len(sentences) {
			end = len(sentences)
		}
		groups = append(groups, strings.Join(sentences[i:end], " "))
	}
	return groups
}

// FromPlainText implements spec.md §4.1's *Plain text* mode: blank-line
// split, else single-line split, else sentence-group fallback.
func FromPlainText(text string) []string {
	blocks := SplitBlankLines(text)
	if len(FilterParagraphs(blocks)) > 1 {
		return FilterParagraphs(blocks)
	}
	lines := strings.Split(text, "\n")
	var lineBlocks []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			lineBlocks = append(lineBlocks, l)
		}
	}
	if len(FilterParagraphs(lineBlocks)) > 1 {
		return FilterParagraphs(lineBlocks)
	}
	return FilterParagraphs(SentenceGroupFallback(text))
}

// FromMarkdownDirect implements spec.md §4.1's *Markdown direct* mode:
// split on blank-line runs, strip Markdown syntax per block, filter. The
// heavier goldmark AST walk lives in markdown.go and is used by the
// Markdown renderer path (headings, code blocks, links); this function is
// the lightweight paragraph-boundary path spec.md describes.
func FromMarkdownDirect(markdown string) []string {
	blocks := SplitBlankLines(markdown)
	stripped := make([]string, 0, len(blocks))
	for _, b := range blocks {
		stripped = append(stripped, stripMarkdownSyntax(b))
	}
	return FilterParagraphs(stripped)
}

var (
	mdHeadingRegex   = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	mdEmphasisRegex  = regexp.MustCompile(`(\*{1,3}|_{1,3})([^*_]+)\1`)
	mdLinkRegex      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdInlineCodeRgx  = regexp.MustCompile("`([^`]*)`")
	mdBlockquoteRgx  = regexp.MustCompile(`(?m)^>\s?`)
	mdListItemRegex  = regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s+`)
)

func stripMarkdownSyntax(block string) string {
	s := block
	s = mdLinkRegex.ReplaceAllString(s, "$1")
	s = mdInlineCodeRgx.ReplaceAllString(s, "$1")
	s = mdEmphasisRegex.ReplaceAllString(s, "$2")
	s = mdHeadingRegex.ReplaceAllString(s, "")
	s = mdBlockquoteRgx.ReplaceAllString(s, "")
	s = mdListItemRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// PDFTextItem is one positioned text run extracted from a PDF page,
// supplied by the caller (this package does not parse PDF byte streams —
// see SPEC_FULL.md's Supplemented Features note: no PDF library appears
// anywhere in the reference pack, so the boundary is drawn at
// already-extracted text items, same as the teacher's own markdown
// pipeline assumes pre-parsed AST input).
type PDFTextItem struct {
	Text   string
	X, Y   float64
	Height float64
	Page   int
}

// Bookmark is one entry of a PDF's chapter outline.
type Bookmark struct {
	Title string
	Page  int
}

// rawParagraph pairs a flushed PDF paragraph with the page it started on,
// so insertBookmarkHeadings can place headings before the right paragraph.
type rawParagraph struct {
	text      string
	firstPage int
}

// FromPDFItems implements spec.md §4.1's *PDF* mode: walk items in
// document order, start a new paragraph whenever the vertical gap exceeds
// 1.8*1.5*lastHeight, join with hyphenation handling, fall back to
// sentence-group fallback if only one paragraph survives, then insert
// heading pseudo-paragraphs from the bookmark outline.
func FromPDFItems(items []PDFTextItem, bookmarks []Bookmark) []string {
	if len(items) == 0 {
		return nil
	}
	var paragraphs []rawParagraph
	var cur strings.Builder
	curPage := items[0].Page
	lastY := items[0].Y
	lastHeight := items[0].Height
	flush := func() {
		text := strings.TrimSpace(cur.String())
		if text != "" {
			paragraphs = append(paragraphs, rawParagraph{text: text, firstPage: curPage})
		}
		cur.Reset()
	}
	for i, it := range items {
		if i == 0 {
			cur.WriteString(it.Text)
			curPage = it.Page
			continue
		}
		gap := lastY - it.Y
		if gap < 0 {
			gap = -gap
		}
		threshold := 1.8 * 1.5 * lastHeight
		if lastHeight <= 0 {
			threshold = 0
		}
		if gap > threshold {
			flush()
			curPage = it.Page
			cur.WriteString(it.Text)
		} else {
			joinHyphenated(&cur, it.Text)
		}
		lastY = it.Y
		lastHeight = it.Height
	}
	flush()

	texts := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		texts[i] = p.text
	}
	filtered := FilterParagraphs(texts)
	if len(filtered) <= 1 {
		joined := strings.Join(texts, " ")
		filtered = FilterParagraphs(SentenceGroupFallback(joined))
		return insertBookmarkHeadings(filtered, nil, bookmarks)
	}
	return insertBookmarkHeadings(filtered, paragraphs, bookmarks)
}

// joinHyphenated appends next to cur, dropping a trailing hyphen from cur
// (end-of-line hyphenation) before joining, else joining with a space.
func joinHyphenated(cur *strings.Builder, next string) {
	s := cur.String()
	if strings.HasSuffix(s, "-") {
		trimmed := strings.TrimSuffix(s, "-")
		cur.Reset()
		cur.WriteString(trimmed)
		cur.WriteString(next)
		return
	}
	cur.WriteString(" ")
	cur.WriteString(next)
}

// insertBookmarkHeadings maps each bookmark's page to the first paragraph
// index on that page or later and inserts a heading pseudo-paragraph
// immediately before it, level clipped to [2,4]. When raw per-paragraph
// page info is unavailable (sentence-group-fallback path), bookmarks are
// appended in order at the head, since no page mapping survives fallback.
func insertBookmarkHeadings(filtered []string, raw []rawParagraph, bookmarks []Bookmark) []string {
	if len(bookmarks) == 0 {
		return filtered
	}
	if raw == nil {
		headings := make([]string, 0, len(bookmarks))
		for _, b := range bookmarks {
			headings = append(headings, headingPseudoParagraph(b.Title, 2))
		}
		return append(headings, filtered...)
	}
	// raw and filtered may differ in length (filtering drops entries); map
	// by best-effort position using page numbers captured in raw, applied
	// to the filtered slice in order since filtering preserves order.
	rawIdx := 0
	out := make([]string, 0, len(filtered)+len(bookmarks))
	bIdx := 0
	for _, p := range filtered {
		for rawIdx < len(raw) && raw[rawIdx].text != p {
			rawIdx++
		}
		page := 0
		if rawIdx < len(raw) {
			page = raw[rawIdx].firstPage
		}
		for bIdx < len(bookmarks) && bookmarks[bIdx].Page <= page {
			level := 2 + bIdx%3
			out = append(out, headingPseudoParagraph(bookmarks[bIdx].Title, level))
			bIdx++
		}
		out = append(out, p)
	}
	for bIdx < len(bookmarks) {
		out = append(out, headingPseudoParagraph(bookmarks[bIdx].Title, 2+bIdx%3))
		bIdx++
	}
	return out
}

func headingPseudoParagraph(title string, level int) string {
	if level < 2 {
		level = 2
	}
	if level > 4 {
		level = 4
	}
	return strings.Repeat("#", level) + " " + title
}
