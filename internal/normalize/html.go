package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlBlockSelector names the block-level tags a reader-view extraction
// cares about, grounded on goquery's CSS-selector extraction idiom from
// RedClaus-cortex's internal/tools/web/parse.go ParseHTMLTool.
const htmlBlockSelector = "p, h1, h2, h3, h4, h5, h6, li, blockquote"

// FromHTML implements spec.md §4.1's *HTML* mode: delegate block-level
// extraction to a reader-view-style parser (goquery), convert its block
// tree to Markdown, then run the same blank-line-split + strip + filter
// pipeline as Markdown-direct mode.
func FromHTML(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	doc.Find(htmlBlockSelector).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		prefix := markdownPrefixFor(goquery.NodeName(sel))
		sb.WriteString(prefix)
		sb.WriteString(text)
		sb.WriteString("\n\n")
	})

	return FromMarkdownDirect(sb.String()), nil
}

func markdownPrefixFor(tag string) string {
	switch tag {
	case "h1":
		return "# "
	case "h2":
		return "## "
	case "h3":
		return "### "
	case "h4":
		return "#### "
	case "h5", "h6":
		return "##### "
	case "li":
		return "- "
	case "blockquote":
		return "> "
	default:
		return ""
	}
}
