// Package lemma reduces English word forms to a canonical lemma so that
// surface variants of a term compare equal during evaluation.
package lemma

import (
	"bufio"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// Lemmatizer maps a single token to its lemma. Implementations must be pure.
type Lemmatizer interface {
	Lemmatize(token string) string
}

var irregular = map[string]string{
	"analyses":    "analysis",
	"axes":        "axis",
	"bases":       "basis",
	"children":    "child",
	"corpora":     "corpus",
	"criteria":    "criterion",
	"feet":        "foot",
	"geese":       "goose",
	"hypotheses":  "hypothesis",
	"indices":     "index",
	"lemmata":     "lemma",
	"matrices":    "matrix",
	"men":         "man",
	"mice":        "mouse",
	"parentheses": "parenthesis",
	"people":      "person",
	"phenomena":   "phenomenon",
	"schemata":    "schema",
	"syntheses":   "synthesis",
	"teeth":       "tooth",
	"theses":      "thesis",
	"vertices":    "vertex",
	"women":       "woman",
}

// invariant words end in "s" but are not plurals.
var invariant = map[string]struct{}{
	"always": {}, "as": {}, "bias": {}, "basis": {}, "chaos": {}, "corpus": {},
	"gas": {}, "is": {}, "lens": {}, "news": {}, "series": {}, "species": {},
	"this": {}, "thus": {}, "was": {}, "has": {}, "does": {}, "its": {},
	"linguistics": {}, "mathematics": {}, "physics": {}, "statistics": {},
	"semantics": {}, "pragmatics": {}, "phonetics": {}, "morphemics": {},
}

// English is a rule-based lemmatizer for English nouns. Exception entries
// take precedence over the built-in tables and suffix rules.
type English struct {
	exceptions map[string]string
}

func NewEnglish() *English {
	return &English{exceptions: make(map[string]string)}
}

// LoadEnglish returns an English lemmatizer extended with the exception table
// at path. An empty path yields the built-in rules only.
func LoadEnglish(path string) (*English, error) {
	l := NewEnglish()
	if path == "" {
		return l, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening lemma exceptions: %w", err)
	}
	defer f.Close()
	if err := l.LoadExceptions(f); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return l, nil
}

// LoadExceptions reads "word<TAB>lemma" lines. Blank lines and lines starting
// with '#' are ignored.
func (l *English) LoadExceptions(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		word, lemma, ok := strings.Cut(text, "\t")
		word, lemma = strings.TrimSpace(word), strings.TrimSpace(lemma)
		if !ok || word == "" || lemma == "" {
			return fmt.Errorf("line %d: expected word<TAB>lemma", line)
		}
		l.exceptions[strings.ToLower(word)] = lemma
	}
	return scanner.Err()
}

// Fingerprint identifies the lemmatizer's behaviour: two English values with
// the same exception entries share a fingerprint, whatever file they came
// from.
func (l *English) Fingerprint() string {
	words := make([]string, 0, len(l.exceptions))
	for w := range l.exceptions {
		words = append(words, w)
	}
	slices.Sort(words)
	h := sha256.New()
	for _, w := range words {
		fmt.Fprintf(h, "%s\t%s\n", w, l.exceptions[w])
	}
	return fmt.Sprintf("english:%x", h.Sum(nil)[:8])
}

// Lemmatize returns the lemma of token. Tokens the rules do not recognise are
// returned unchanged, including their case.
func (l *English) Lemmatize(token string) string {
	lower := strings.ToLower(token)
	if lemma, ok := l.exceptions[lower]; ok {
		return lemma
	}
	if lemma, ok := irregular[lower]; ok {
		return matchCase(token, lemma)
	}
	if _, ok := invariant[lower]; ok {
		return token
	}
	if len(lower) <= 3 || !strings.HasSuffix(lower, "s") {
		return token
	}

	switch {
	case strings.HasSuffix(lower, "'s"):
		return token
	case strings.HasSuffix(lower, "ies") && len(lower) > 4:
		return token[:len(token)-3] + matchCase(token[len(token)-3:], "y")
	case strings.HasSuffix(lower, "sses"),
		strings.HasSuffix(lower, "xes"),
		strings.HasSuffix(lower, "zzes"),
		strings.HasSuffix(lower, "ches"),
		strings.HasSuffix(lower, "shes"):
		return token[:len(token)-2]
	case strings.HasSuffix(lower, "ss"),
		strings.HasSuffix(lower, "us"),
		strings.HasSuffix(lower, "is"):
		return token
	default:
		return token[:len(token)-1]
	}
}

func matchCase(original, lemma string) string {
	if original != "" && original == strings.ToUpper(original) {
		return strings.ToUpper(lemma)
	}
	return lemma
}

// Phrase lemmatizes every whitespace-separated token of s and joins the
// results with a single space.
func Phrase(l Lemmatizer, s string) string {
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		tokens[i] = l.Lemmatize(tok)
	}
	return strings.Join(tokens, " ")
}
