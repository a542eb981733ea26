// Package benchmark contains Go benchmarks for the index, the candidate
// extractors and the scorer, measuring throughput and allocation behaviour.
package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/config"
)

var topics = []string{"hidden markov model", "neural network", "machine translation", "dependency parser", "word sense disambiguation", "language model"}

func paper(i int) string {
	return fmt.Sprintf("We train a %s on the treebank. The %s improves over a %s baseline in experiment %d.",
		topics[i%len(topics)], topics[(i+1)%len(topics)], topics[(i+2)%len(topics)], i)
}

func benchIndexConfig(b *testing.B) config.IndexConfig {
	return config.IndexConfig{
		Home:               b.TempDir(),
		Core:               "bench",
		SegmentMaxSize:     100 * 1024 * 1024,
		CandidateMinTokens: 1,
		CandidateMaxTokens: 4,
	}
}

// BenchmarkMemoryIndexAdd measures per-document insert throughput into the
// in-memory inverted index.
func BenchmarkMemoryIndexAdd(b *testing.B) {
	mi := index.NewMemoryIndex()
	text := paper(0)
	fields := map[string][]tokenizer.Token{
		index.FieldContent:   tokenizer.Tokenize(text),
		index.FieldCandidate: tokenizer.Candidates(text, 1, 4),
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.AddDocument(fmt.Sprintf("doc-%d", i), fields)
	}
}

// BenchmarkMemoryIndexSnapshot measures the cost of snapshotting the index
// before a segment flush.
func BenchmarkMemoryIndexSnapshot(b *testing.B) {
	mi := index.NewMemoryIndex()
	for i := 0; i < 5000; i++ {
		text := paper(i)
		mi.AddDocument(fmt.Sprintf("doc-%d", i), map[string][]tokenizer.Token{
			index.FieldCandidate: tokenizer.Candidates(text, 1, 4),
		})
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = mi.Snapshot()
	}
}

// BenchmarkEngineAdd measures engine indexing throughput at various
// pre-loaded corpus sizes.
func BenchmarkEngineAdd(b *testing.B) {
	for _, preload := range []int{100, 1000, 5000} {
		b.Run(fmt.Sprintf("preload_%d", preload), func(b *testing.B) {
			engine, err := indexer.Open(benchIndexConfig(b))
			if err != nil {
				b.Fatal(err)
			}
			defer engine.Close()

			for i := 0; i < preload; i++ {
				engine.AddDocument(fmt.Sprintf("preload-%d", i), map[string]string{index.FieldContent: paper(i)})
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := engine.AddDocument(fmt.Sprintf("bench-%d", i), map[string]string{index.FieldContent: paper(i)}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func committedEngine(b *testing.B, docs int) *indexer.Engine {
	b.Helper()
	engine, err := indexer.Open(benchIndexConfig(b))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { engine.Close() })
	for i := 0; i < docs; i++ {
		if err := engine.AddDocument(fmt.Sprintf("doc-%d", i), map[string]string{index.FieldContent: paper(i)}); err != nil {
			b.Fatal(err)
		}
	}
	if err := engine.Commit(); err != nil {
		b.Fatal(err)
	}
	return engine
}

// BenchmarkEngineTermStats measures candidate statistics collection over
// 5 000 committed documents.
func BenchmarkEngineTermStats(b *testing.B) {
	engine := committedEngine(b, 5000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.TermStats(index.FieldCandidate); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExtract measures each ranking algorithm over the same committed
// index.
func BenchmarkExtract(b *testing.B) {
	engine := committedEngine(b, 2000)
	for _, name := range extract.Algorithms {
		ext, err := extract.New(config.ExtractConfig{Algorithm: name, MinFrequency: 2})
		if err != nil {
			b.Fatal(err)
		}
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := ext.Extract(context.Background(), engine); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
