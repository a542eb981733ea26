// Package ranking orders an extractor's scored candidates into the ranked
// list the scorer consumes.
package ranking

import "sort"

// ScoredTerm is one candidate as emitted by an extractor.
type ScoredTerm struct {
	Surface string  `json:"surface"`
	Score   float64 `json:"score"`
}

// RankedTerm is a ScoredTerm with its 1-based position in the ranked list.
type RankedTerm struct {
	Surface string  `json:"surface"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}

// Rank sorts candidates by descending score. Equal scores keep emission
// order. The input slice is not modified.
func Rank(candidates []ScoredTerm) []RankedTerm {
	sorted := make([]ScoredTerm, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	ranked := make([]RankedTerm, len(sorted))
	for i, c := range sorted {
		ranked[i] = RankedTerm{Surface: c.Surface, Score: c.Score, Rank: i + 1}
	}
	return ranked
}

// ToRankedList returns the surfaces of candidates in rank order.
func ToRankedList(candidates []ScoredTerm) []string {
	return Surfaces(Rank(candidates))
}

// Surfaces returns the surface of each ranked term, keeping rank order.
func Surfaces(ranked []RankedTerm) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Surface
	}
	return out
}

// Top returns at most n leading entries of ranked.
func Top(ranked []RankedTerm, n int) []RankedTerm {
	if n < 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}
