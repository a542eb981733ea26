// Package tokenizer provides text tokenisation for the index. Tokenize
// lower-cases input, splits on non-alphanumeric boundaries, removes stop-words
// and stems; Candidates produces the unstemmed word n-grams that term
// extractors rank.
package tokenizer

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {}, "we": {},
	"our": {}, "these": {}, "those": {}, "such": {}, "than": {},
	"into": {}, "also": {}, "been": {}, "may": {}, "there": {},
	"i": {}, "e": {}, "g": {}, "et": {}, "al": {},
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// IsStopWord reports whether the lower-cased word is a stop-word.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Tokenize breaks text into a slice of stemmed, lowercased Tokens with
// stop-words removed.
func Tokenize(text string) []Token {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words)/2)
	pos := 0
	for _, word := range words {
		if len(word) < 2 {
			continue
		}
		if IsStopWord(word) {
			continue
		}
		stemmed := stem(word)
		if stemmed == "" {
			continue
		}
		tokens = append(tokens, Token{
			Term:     stemmed,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// Candidates returns every lower-cased word n-gram of minTokens..maxTokens
// words. N-grams never cross phrase punctuation, never start or end with a
// stop-word and never contain a purely numeric word. Position is the index of
// the first word within the document.
func Candidates(text string, minTokens, maxTokens int) []Token {
	if minTokens < 1 {
		minTokens = 1
	}
	if maxTokens < minTokens {
		return nil
	}
	out := make([]Token, 0)
	pos := 0
	for _, phrase := range strings.FieldsFunc(strings.ToLower(text), isPhraseBreak) {
		words := splitWords(phrase)
		for i := range words {
			if !usableEdge(words[i]) {
				continue
			}
			for n := 1; n <= maxTokens && i+n <= len(words); n++ {
				last := words[i+n-1]
				if isNumeric(last) {
					break
				}
				if n < minTokens || !usableEdge(last) {
					continue
				}
				out = append(out, Token{
					Term:     strings.Join(words[i:i+n], " "),
					Position: pos + i,
				})
			}
		}
		pos += len(words)
	}
	return out
}

func isPhraseBreak(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '!', '?', '(', ')', '[', ']', '{', '}', '"', '\'', '/', '|':
		return true
	}
	return false
}

func splitWords(phrase string) []string {
	raw := strings.FieldsFunc(phrase, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	words := raw[:0]
	for _, w := range raw {
		w = strings.Trim(w, "-")
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func usableEdge(word string) bool {
	return len(word) >= 2 && !IsStopWord(word) && !isNumeric(word)
}

func isNumeric(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

// stem applies a simple suffix-stripping stemmer to the given word.
func stem(word string) string {
	suffixes := []struct {
		suffix      string
		replacement string
		minLen      int
	}{
		{"ational", "ate", 2},
		{"tional", "tion", 2},
		{"encies", "ence", 2},
		{"ances", "ance", 2},
		{"ments", "ment", 2},
		{"izing", "ize", 2},
		{"ating", "ate", 2},
		{"iness", "y", 2},
		{"ously", "ous", 2},
		{"ively", "ive", 2},
		{"eness", "ene", 2},
		{"tion", "t", 3},
		{"sion", "s", 3},
		{"ying", "y", 2},
		{"ling", "l", 3},
		{"ies", "y", 2},
		{"ing", "", 3},
		{"ers", "er", 2},
		{"est", "", 3},
		{"ful", "", 3},
		{"ous", "", 3},
		{"ess", "", 3},
		{"ble", "", 3},
		{"ed", "", 3},
		{"er", "", 3},
		{"ly", "", 3},
		{"es", "", 3},
		{"ss", "ss", 2},
		{"s", "", 3},
	}
	for _, rule := range suffixes {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
