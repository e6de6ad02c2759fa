package normalize

import (
	"reflect"
	"testing"
)

func TestWordLikeTokensSplitsOnNonLetters(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple words", "hello world", []string{"hello", "world"}},
		{"accented letters kept together", "café naïve", []string{"café", "naïve"}},
		{"single letter runs dropped", "a b cd", []string{"cd"}},
		{"digits are not letters", "abc123def", []string{"abc", "def"}},
		{"punctuation splits", "one, two; three!", []string{"one", "two", "three"}},
		{"empty string", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wordLikeTokens(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("wordLikeTokens(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsWordLetterLatinAndCombining(t *testing.T) {
	if !isWordLetter('a') || !isWordLetter('Z') {
		t.Errorf("expected basic Latin letters to be word letters")
	}
	if !isWordLetter('é') {
		t.Errorf("expected accented Latin letters to be word letters")
	}
	if isWordLetter('7') {
		t.Errorf("expected digits to not be word letters")
	}
	if isWordLetter(' ') {
		t.Errorf("expected space to not be a word letter")
	}
}

func TestCountRunesHandlesMultibyte(t *testing.T) {
	if got := countRunes("café"); got != 4 {
		t.Errorf("countRunes(café) = %d, want 4", got)
	}
}
