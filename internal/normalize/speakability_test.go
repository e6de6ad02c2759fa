package normalize

import "testing"

func TestStripNonSpeechRemovesHTMLAndImages(t *testing.T) {
	in := `<b>Hello</b> world ![alt](http://example.com/pic.png) and data:image/png;base64,AAAA== and [Image: a cat](http://example.com/cat.jpg)`
	got := StripNonSpeech(in)
	for _, unwanted := range []string{"<b>", "</b>", "![alt]", "data:image", "[Image:"} {
		if containsSubstring(got, unwanted) {
			t.Errorf("StripNonSpeech left %q in output: %q", unwanted, got)
		}
	}
}

func TestStripNonSpeechCollapsesWhitespace(t *testing.T) {
	got := StripNonSpeech("word1    word2\n\nword3")
	want := "word1 word2 word3"
	if got != want {
		t.Errorf("StripNonSpeech whitespace collapse = %q, want %q", got, want)
	}
}

func TestIsSpeakableRequiresThreeDistinctWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"three distinct words", "one two three", true},
		{"two distinct words", "one two one", false},
		{"repeated word only", "one one one", false},
		{"case insensitive distinctness", "One one TWO three", true},
		{"empty", "", false},
		{"digits only, not letters", "12 34 56", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSpeakable(tt.in); got != tt.want {
				t.Errorf("IsSpeakable(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilterParagraphsDropsShortAndUnspeakable(t *testing.T) {
	in := []string{
		"A paragraph with enough distinct speakable words to survive.",
		"short",
		"11 22 33 44 55",
		"",
	}
	got := FilterParagraphs(in)
	if len(got) != 1 {
		t.Fatalf("FilterParagraphs = %v, want exactly 1 surviving paragraph", got)
	}
	if got[0] != in[0] {
		t.Errorf("FilterParagraphs kept %q, want %q", got[0], in[0])
	}
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
