package normalize

import "strings"

// RenderedBlock is one visible DOM block the reading view produced, with
// a flag marking block types that contribute no speakable text (code
// blocks, image-only figures).
type RenderedBlock struct {
	Text   string
	Skip   bool // code blocks, image-only figures, etc.
	Source any  // opaque reference to the originating DOM block, carried through
}

// TTSParagraph is one flushed consumer-side paragraph: its text and the
// set of rendered blocks that composed it, all sharing one index.
type TTSParagraph struct {
	Text   string
	Blocks []any
}

// MergeRenderedBlocks implements spec.md §4.1's TTS-layer block merging:
// accumulate block text into a pending buffer, flush once its length
// reaches MinTTSParagraphLen, tagging every contributing block with the
// flushed paragraph's index. Skipped blocks contribute no text and
// receive no index (omitted from the returned paragraph's Blocks).
func MergeRenderedBlocks(blocks []RenderedBlock) []TTSParagraph {
	var out []TTSParagraph
	var pending strings.Builder
	var pendingSources []any

	flush := func() {
		text := strings.TrimSpace(pending.String())
		if text != "" {
			out = append(out, TTSParagraph{Text: text, Blocks: append([]any(nil), pendingSources...)})
		}
		pending.Reset()
		pendingSources = pendingSources[:0]
	}

	for _, b := range blocks {
		if b.Skip {
			continue
		}
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		if pending.Len() > 0 {
			pending.WriteString(" ")
		}
		pending.WriteString(text)
		pendingSources = append(pendingSources, b.Source)
		if pending.Len() >= MinTTSParagraphLen {
			flush()
		}
	}
	flush()
	return out
}
