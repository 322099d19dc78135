// Package tokenizer splits text into lower-cased word tokens. The same
// function runs at index time and at query time; any change here requires a
// rebuild of every index.
package tokenizer

import (
	"strings"
	"unicode"
)

// Token is a normalized term and its ordinal position in the source text.
type Token struct {
	Term     string
	Position int
}

// Tokenize lower-cases text and splits it on every rune that is not a letter
// or digit. All tokens are kept, stopwords and single characters included.
func Tokenize(text string) []Token {
	words := strings.FieldsFunc(text, isSeparator)
	tokens := make([]Token, 0, len(words))
	for i, word := range words {
		tokens = append(tokens, Token{
			Term:     strings.ToLower(word),
			Position: i,
		})
	}
	return tokens
}

// Terms is Tokenize without positions.
func Terms(text string) []string {
	words := strings.FieldsFunc(text, isSeparator)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
