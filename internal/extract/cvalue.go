package extract

import (
	"context"
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/ranking"
)

// CValue implements the C-value measure of Frantzi et al.: frequency weighted
// by term length, discounted by the frequency of longer candidates that
// contain the term.
//
//	cvalue(a) = log2(|a|+1) * f(a)                          if a is not nested
//	cvalue(a) = log2(|a|+1) * (f(a) - sum f(b) / |T(a)|)    otherwise
//
// where T(a) is the set of longer candidates b containing a.
type CValue struct {
	MinFrequency int64
}

func (*CValue) Name() string { return "cvalue" }

type nesting struct {
	parents int
	freqSum int64
}

func (e *CValue) Extract(ctx context.Context, src Source) ([]ranking.ScoredTerm, error) {
	stats, all, err := candidateStats(ctx, src, e.MinFrequency)
	if err != nil {
		return nil, err
	}

	freq := make(map[string]int64, len(all))
	for _, s := range all {
		freq[s.Term] = s.TotalFreq
	}
	nested := make(map[string]*nesting)
	for i, s := range all {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		words := strings.Fields(s.Term)
		seen := make(map[string]struct{})
		for n := 1; n < len(words); n++ {
			for start := 0; start+n <= len(words); start++ {
				sub := strings.Join(words[start:start+n], " ")
				if _, ok := freq[sub]; !ok {
					continue
				}
				if _, dup := seen[sub]; dup {
					continue
				}
				seen[sub] = struct{}{}
				nst, ok := nested[sub]
				if !ok {
					nst = &nesting{}
					nested[sub] = nst
				}
				nst.parents++
				nst.freqSum += s.TotalFreq
			}
		}
	}

	out := make([]ranking.ScoredTerm, 0, len(stats))
	for _, s := range stats {
		weight := math.Log2(float64(len(strings.Fields(s.Term))) + 1)
		f := float64(s.TotalFreq)
		if nst, ok := nested[s.Term]; ok && nst.parents > 0 {
			f -= float64(nst.freqSum) / float64(nst.parents)
		}
		out = append(out, ranking.ScoredTerm{Surface: s.Term, Score: weight * f})
	}
	return out, nil
}
