// Package tokenizer splits text into search tokens. Two rules coexist:
// Tokenize is the scanner's rule (lowercase, split on runs of non-word
// characters) and Fields is the report renderer's rule (split on whitespace,
// case preserved, compared case-insensitively by CountFold).
package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// IsWordChar reports whether r belongs to a word: letters, non-spacing
// marks, decimal digits and connector punctuation such as '_'.
func IsWordChar(r rune) bool {
	return unicode.IsLetter(r) ||
		unicode.Is(unicode.Mn, r) ||
		unicode.Is(unicode.Nd, r) ||
		unicode.Is(unicode.Pc, r)
}

// Lower lowercases text using Unicode case mapping. A Caser holds state, so
// one is built per call.
func Lower(text string) string {
	return cases.Lower(language.Und).String(text)
}

// Tokenize lowercases text and splits it on runs of non-word characters.
// Separators at either end never yield empty tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(Lower(text), func(r rune) bool {
		return !IsWordChar(r)
	})
}

// Fields splits a single line on whitespace, keeping case.
func Fields(line string) []string {
	return strings.Fields(line)
}

// Count returns the number of tokens exactly equal to word.
func Count(tokens []string, word string) int {
	n := 0
	for _, tok := range tokens {
		if tok == word {
			n++
		}
	}
	return n
}

// CountFold returns the number of tokens equal to word under simple Unicode
// case folding.
func CountFold(tokens []string, word string) int {
	n := 0
	for _, tok := range tokens {
		if strings.EqualFold(tok, word) {
			n++
		}
	}
	return n
}
