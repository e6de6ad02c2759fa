package normalize

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// MarkdownRenderer walks a Markdown document's AST and extracts
// block-level text, preserving heading levels as pseudo-paragraphs and
// skipping code blocks — grounded on the teacher's
// pkg/tts/markdown_processor.go MarkdownProcessor.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

// NewMarkdownRenderer builds a renderer configured with automatic heading
// IDs, the same option the teacher enables.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		md: goldmark.New(goldmark.WithParserOptions(parser.WithAutoHeadingID())),
	}
}

// BlockKind distinguishes the pseudo-paragraph role of an extracted block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
)

// Block is one AST-derived unit of text before sentence splitting.
type Block struct {
	Kind    BlockKind
	Level   int // heading level, when Kind == BlockHeading
	Content string
}

// ExtractBlocks walks the Markdown AST and returns one Block per
// paragraph/heading node and one per blockquote or list item (whose
// nested paragraphs are not emitted again), skipping code blocks and
// thematic breaks (they carry no speakable text).
func (r *MarkdownRenderer) ExtractBlocks(source string) ([]Block, error) {
	reader := text.NewReader([]byte(source))
	doc := r.md.Parser().Parse(reader)

	var blocks []Block
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Paragraph:
			content := extractText(node, source)
			if content != "" {
				blocks = append(blocks, Block{Kind: BlockParagraph, Content: content})
			}
		case *ast.Heading:
			content := extractText(node, source)
			if content != "" {
				blocks = append(blocks, Block{Kind: BlockHeading, Level: node.Level, Content: content})
			}
		case *ast.Blockquote:
			content := extractText(node, source)
			if content != "" {
				blocks = append(blocks, Block{Kind: BlockParagraph, Content: content})
			}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			content := extractText(node, source)
			if content != "" {
				blocks = append(blocks, Block{Kind: BlockParagraph, Content: content})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

func extractText(node ast.Node, source string) string {
	var sb strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Text:
			sb.Write(c.Segment.Value([]byte(source)))
			sb.WriteString(" ")
		case *ast.CodeSpan:
			// skip inline code — not worth speaking
		default:
			sb.WriteString(extractText(c, source))
		}
	}
	return strings.TrimSpace(sb.String())
}

// BlocksToParagraphs converts extracted blocks to the paragraph list
// spec.md §4.1 wants: headings become "## title"-style pseudo-paragraphs
// (level clipped to [2,4]), then everything goes through FilterParagraphs.
func BlocksToParagraphs(blocks []Block) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Kind {
		case BlockHeading:
			out = append(out, headingPseudoParagraph(b.Content, b.Level))
		default:
			out = append(out, b.Content)
		}
	}
	return FilterParagraphs(out)
}

// FromMarkdownAST is the AST-driven Markdown path, an alternative to the
// lightweight FromMarkdownDirect for documents rich in headings/lists.
// The HTML mode (FromHTML) does not use it; it goes through
// FromMarkdownDirect.
func FromMarkdownAST(r *MarkdownRenderer, source string) ([]string, error) {
	blocks, err := r.ExtractBlocks(source)
	if err != nil {
		return nil, err
	}
	return BlocksToParagraphs(blocks), nil
}
