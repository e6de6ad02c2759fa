package normalize

import (
	"strings"
	"testing"
)

func TestExtractBlocksSkipsCodeBlocks(t *testing.T) {
	r := NewMarkdownRenderer()
	source := "# A Heading\n\nA regular paragraph with enough distinct speakable words.\n\n```\ncode should not appear\n```\n"

	blocks, err := r.ExtractBlocks(source)
	if err != nil {
		t.Fatalf("ExtractBlocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("ExtractBlocks returned %d blocks, want 2 (heading + paragraph): %+v", len(blocks), blocks)
	}
	if blocks[0].Kind != BlockHeading || blocks[0].Level != 1 {
		t.Errorf("blocks[0] = %+v, want a level-1 heading", blocks[0])
	}
	if blocks[1].Kind != BlockParagraph {
		t.Errorf("blocks[1] = %+v, want a paragraph", blocks[1])
	}
	for _, b := range blocks {
		if strings.Contains(b.Content, "code should not appear") {
			t.Errorf("code block content leaked into %+v", b)
		}
	}
}

func TestExtractBlocksListItems(t *testing.T) {
	r := NewMarkdownRenderer()
	source := "- first item has enough distinct speakable words\n- second item has enough distinct speakable words\n"

	blocks, err := r.ExtractBlocks(source)
	if err != nil {
		t.Fatalf("ExtractBlocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("ExtractBlocks returned %d blocks, want 2 list items: %+v", len(blocks), blocks)
	}
	for _, b := range blocks {
		if b.Kind != BlockParagraph {
			t.Errorf("list item block kind = %v, want BlockParagraph", b.Kind)
		}
	}
}

func TestBlocksToParagraphsHeadingPseudoParagraph(t *testing.T) {
	blocks := []Block{
		{Kind: BlockHeading, Level: 1, Content: "A Heading With Enough Words"},
		{Kind: BlockParagraph, Content: "A paragraph with enough distinct speakable words."},
	}
	paragraphs := BlocksToParagraphs(blocks)
	if len(paragraphs) == 0 {
		t.Fatalf("expected surviving paragraphs, got none")
	}
	found := false
	for _, p := range paragraphs {
		if strings.HasPrefix(p, "#") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the heading to become a pseudo-paragraph with a # prefix, got %v", paragraphs)
	}
}

func TestFromMarkdownASTRoundTrip(t *testing.T) {
	r := NewMarkdownRenderer()
	source := "## Section Title Here\n\nBody text with enough distinct speakable words present.\n"
	paragraphs, err := FromMarkdownAST(r, source)
	if err != nil {
		t.Fatalf("FromMarkdownAST: %v", err)
	}
	if len(paragraphs) == 0 {
		t.Fatalf("expected at least one paragraph")
	}
}
