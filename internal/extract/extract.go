// Package extract ranks the candidate terms collected at index time. Each
// Extractor reads per-term statistics from the committed index and emits one
// ScoredTerm per candidate, in term order.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termbench/pkg/errors"
)

// Source is the read side of the index an extractor needs.
type Source interface {
	TermStats(field string) ([]index.TermStat, error)
	CountAll() (int64, error)
}

type Extractor interface {
	Name() string
	Extract(ctx context.Context, src Source) ([]ranking.ScoredTerm, error)
}

// Algorithms lists the names New accepts.
var Algorithms = []string{"ttf", "tfidf", "cvalue"}

// New returns the extractor named by cfg.Algorithm.
func New(cfg config.ExtractConfig) (Extractor, error) {
	switch strings.ToLower(cfg.Algorithm) {
	case "ttf":
		return &TTF{MinFrequency: cfg.MinFrequency}, nil
	case "tfidf":
		return &TFIDF{MinFrequency: cfg.MinFrequency}, nil
	case "cvalue":
		return &CValue{MinFrequency: cfg.MinFrequency}, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig,
			"unknown algorithm %q (want one of %s)", cfg.Algorithm, strings.Join(Algorithms, ", "))
	}
}

// candidateStats loads the candidate field statistics and drops terms below
// minFreq. The full, unfiltered list is returned as well.
func candidateStats(ctx context.Context, src Source, minFreq int64) (kept, all []index.TermStat, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	all, err = src.TermStats(index.FieldCandidate)
	if err != nil {
		return nil, nil, fmt.Errorf("reading candidate statistics: %w", err)
	}
	kept = make([]index.TermStat, 0, len(all))
	for _, s := range all {
		if s.TotalFreq >= minFreq {
			kept = append(kept, s)
		}
	}
	slog.Default().Debug("candidate statistics loaded",
		"component", "extract",
		"candidates", len(all),
		"kept", len(kept),
		"min_frequency", minFreq,
	)
	return kept, all, nil
}

// checkEvery is how many terms are scored between context checks.
const checkEvery = 4096

// TTF scores a candidate by its total frequency in the corpus.
type TTF struct {
	MinFrequency int64
}

func (*TTF) Name() string { return "ttf" }

func (e *TTF) Extract(ctx context.Context, src Source) ([]ranking.ScoredTerm, error) {
	stats, _, err := candidateStats(ctx, src, e.MinFrequency)
	if err != nil {
		return nil, err
	}
	out := make([]ranking.ScoredTerm, 0, len(stats))
	for i, s := range stats {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out = append(out, ranking.ScoredTerm{Surface: s.Term, Score: float64(s.TotalFreq)})
	}
	return out, nil
}
