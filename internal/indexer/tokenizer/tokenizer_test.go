package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "Love is Love", []string{"love", "is", "love"}},
		{"punctuation", "rock-n-roll, baby!", []string{"rock", "n", "roll", "baby"}},
		{"keeps stopwords", "the and of a", []string{"the", "and", "of", "a"}},
		{"digits", "Summer of '69", []string{"summer", "of", "69"}},
		{"unicode", "Café Über", []string{"café", "über"}},
		{"multiline", "line one\nline two", []string{"line", "one", "line", "two"}},
		{"empty", "", []string{}},
		{"only separators", " -- !! ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := Tokenize(tt.in)
			got := make([]string, 0, len(toks))
			for i, tok := range toks {
				assert.Equal(t, i, tok.Position)
				got = append(got, tok.Term)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, append([]string{}, Terms(tt.in)...))
		})
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	in := "Is this the real life? Is this just fantasy?"
	assert.Equal(t, Tokenize(in), Tokenize(in))
}

func BenchmarkTokenize(b *testing.B) {
	text := strings.Repeat("Caught in a landslide, no escape from reality. ", 200)
	b.ReportAllocs()
	for b.Loop() {
		Tokenize(text)
	}
}
