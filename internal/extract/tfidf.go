package extract

import (
	"context"
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/ranking"
)

// TFIDF weights total frequency by inverse document frequency.
type TFIDF struct {
	MinFrequency int64
}

func (*TFIDF) Name() string { return "tfidf" }

func (e *TFIDF) Extract(ctx context.Context, src Source) ([]ranking.ScoredTerm, error) {
	stats, _, err := candidateStats(ctx, src, e.MinFrequency)
	if err != nil {
		return nil, err
	}
	totalDocs, err := src.CountAll()
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	out := make([]ranking.ScoredTerm, 0, len(stats))
	for i, s := range stats {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		score := float64(s.TotalFreq) * computeIDF(totalDocs, s.DocFreq)
		out = append(out, ranking.ScoredTerm{Surface: s.Term, Score: score})
	}
	return out, nil
}

// computeIDF is the smoothed idf used by BM25; it stays positive when a term
// occurs in every document.
func computeIDF(totalDocs, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq)
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}
