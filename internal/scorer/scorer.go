// Package scorer evaluates a ranked term list against a gold standard,
// producing precision at a set of rank cutoffs and overall recall.
//
// Both lists are normalized the same way before comparison: optional case
// folding, then optional per-token lemmatization, with tokens re-joined by a
// single space. Ranked terms outside the configured length and token-count
// bounds never match but still occupy their rank position.
package scorer

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/lemma"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termbench/pkg/errors"
)

// Config selects the lexical matching rules. A zero maximum leaves that
// bound open.
type Config struct {
	UseLemmaMatching         bool
	CaseSensitive            bool
	RequireExactTermBoundary bool
	MinTermLength            int
	MaxTermLength            int
	MinTokenCount            int
	MaxTokenCount            int
}

// FromConfig converts the scorer section of the application config.
func FromConfig(c config.ScorerConfig) Config {
	return Config{
		UseLemmaMatching:         c.UseLemmaMatching,
		CaseSensitive:            c.CaseSensitive,
		RequireExactTermBoundary: c.RequireExactTermBoundary,
		MinTermLength:            c.MinTermLength,
		MaxTermLength:            c.MaxTermLength,
		MinTokenCount:            c.MinTokenCount,
		MaxTokenCount:            c.MaxTokenCount,
	}
}

// Result is the outcome of one evaluation. PrecisionByCutoff and
// HitsByCutoff are aligned with Cutoffs.
type Result struct {
	Cutoffs           []int     `json:"cutoffs"`
	PrecisionByCutoff []float64 `json:"precision_by_cutoff"`
	HitsByCutoff      []int     `json:"hits_by_cutoff"`
	Recall            float64   `json:"recall"`
	Ranked            int       `json:"ranked"`
	Eligible          int       `json:"eligible"`
	MatchedGold       int       `json:"matched_gold"`
	DistinctGold      int       `json:"distinct_gold"`
}

// Evaluate scores ranked against gold. lem may be nil unless
// cfg.UseLemmaMatching is set. Neither input slice is modified.
func Evaluate(lem lemma.Lemmatizer, gold, ranked []string, cfg Config, cutoffs []int) (Result, error) {
	if err := validate(lem, cfg, cutoffs); err != nil {
		return Result{}, err
	}
	n := normalizer{lem: lem, cfg: cfg}
	g := newGoldSet(gold, n)

	prefix := make([]int, len(ranked)+1)
	eligible := 0
	for i, surface := range ranked {
		hit := false
		if cfg.eligible(surface) {
			eligible++
			hit = g.match(n.tokens(surface), cfg.RequireExactTermBoundary)
		}
		prefix[i+1] = prefix[i]
		if hit {
			prefix[i+1]++
		}
	}

	res := Result{
		Cutoffs:           append([]int{}, cutoffs...),
		PrecisionByCutoff: make([]float64, len(cutoffs)),
		HitsByCutoff:      make([]int, len(cutoffs)),
		Ranked:            len(ranked),
		Eligible:          eligible,
		MatchedGold:       g.consumedCount,
		DistinctGold:      len(g.terms),
	}
	for i, k := range cutoffs {
		depth := min(k, len(ranked))
		res.HitsByCutoff[i] = prefix[depth]
		if depth > 0 {
			res.PrecisionByCutoff[i] = float64(prefix[depth]) / float64(depth)
		}
	}
	if res.DistinctGold > 0 {
		res.Recall = float64(res.MatchedGold) / float64(res.DistinctGold)
	}
	return res, nil
}

func validate(lem lemma.Lemmatizer, cfg Config, cutoffs []int) error {
	if cfg.UseLemmaMatching && lem == nil {
		return apperrors.New(apperrors.ErrInvalidConfig, "lemma matching requires a lemmatizer")
	}
	if cfg.MaxTermLength > 0 && cfg.MinTermLength > cfg.MaxTermLength {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "min term length %d exceeds max %d", cfg.MinTermLength, cfg.MaxTermLength)
	}
	if cfg.MaxTokenCount > 0 && cfg.MinTokenCount > cfg.MaxTokenCount {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "min token count %d exceeds max %d", cfg.MinTokenCount, cfg.MaxTokenCount)
	}
	seen := make(map[int]struct{}, len(cutoffs))
	for _, k := range cutoffs {
		if k <= 0 {
			return apperrors.Newf(apperrors.ErrInvalidCutoff, "cutoff %d is not positive", k)
		}
		if _, dup := seen[k]; dup {
			return apperrors.Newf(apperrors.ErrInvalidCutoff, "cutoff %d listed twice", k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

func (c Config) eligible(surface string) bool {
	length := utf8.RuneCountInString(strings.TrimSpace(surface))
	if length < c.MinTermLength || (c.MaxTermLength > 0 && length > c.MaxTermLength) {
		return false
	}
	tokens := len(strings.Fields(surface))
	if tokens < c.MinTokenCount || (c.MaxTokenCount > 0 && tokens > c.MaxTokenCount) {
		return false
	}
	return true
}

type normalizer struct {
	lem lemma.Lemmatizer
	cfg Config
}

func (n normalizer) tokens(s string) []string {
	if !n.cfg.CaseSensitive {
		s = strings.ToLower(s)
	}
	tokens := strings.Fields(s)
	if n.cfg.UseLemmaMatching {
		for i, tok := range tokens {
			tokens[i] = n.lem.Lemmatize(tok)
		}
	}
	return tokens
}

// goldSet holds the distinct normalized gold terms in first-seen order and
// tracks which of them have been matched by some ranked term.
type goldSet struct {
	terms         [][]string
	byForm        map[string]int
	byToken       map[string][]int
	byFirst       map[string][]int
	consumed      []bool
	consumedCount int
}

func newGoldSet(gold []string, n normalizer) *goldSet {
	g := &goldSet{
		byForm:  make(map[string]int, len(gold)),
		byToken: make(map[string][]int),
		byFirst: make(map[string][]int),
	}
	for _, term := range gold {
		tokens := n.tokens(term)
		if len(tokens) == 0 {
			continue
		}
		form := strings.Join(tokens, " ")
		if _, dup := g.byForm[form]; dup {
			continue
		}
		id := len(g.terms)
		g.terms = append(g.terms, tokens)
		g.byForm[form] = id
		g.byFirst[tokens[0]] = append(g.byFirst[tokens[0]], id)
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			g.byToken[tok] = append(g.byToken[tok], id)
		}
	}
	g.consumed = make([]bool, len(g.terms))
	return g
}

// match reports whether the normalized ranked tokens match any gold term and
// consumes every gold term they match. Exact mode matches normalized forms
// only; otherwise a gold term also matches when either token sequence is a
// contiguous run of the other.
func (g *goldSet) match(tokens []string, exact bool) bool {
	if len(tokens) == 0 {
		return false
	}
	hit := false
	if id, ok := g.byForm[strings.Join(tokens, " ")]; ok {
		g.consume(id)
		hit = true
	}
	if exact {
		return hit
	}
	for _, id := range g.candidates(tokens) {
		gt := g.terms[id]
		if containsRun(gt, tokens) || containsRun(tokens, gt) {
			g.consume(id)
			hit = true
		}
	}
	return hit
}

// candidates returns, in gold order, the gold terms that could contain
// tokens (they share its first token) or be contained by it (their first
// token occurs in tokens).
func (g *goldSet) candidates(tokens []string) []int {
	set := make(map[int]struct{})
	for _, id := range g.byToken[tokens[0]] {
		set[id] = struct{}{}
	}
	for _, tok := range tokens {
		for _, id := range g.byFirst[tok] {
			set[id] = struct{}{}
		}
	}
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (g *goldSet) consume(id int) {
	if !g.consumed[id] {
		g.consumed[id] = true
		g.consumedCount++
	}
}

// containsRun reports whether needle occurs as a contiguous run in haystack.
func containsRun(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, tok := range needle {
			if haystack[i+j] != tok {
				continue outer
			}
		}
		return true
	}
	return false
}
