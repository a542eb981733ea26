package harness

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/lemma"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/report"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termbench/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/termbench/pkg/redis"
)

type fixedExtractor struct {
	terms []ranking.ScoredTerm
	calls int
}

func (f *fixedExtractor) Name() string { return "fixed" }

func (f *fixedExtractor) Extract(_ context.Context, src extract.Source) ([]ranking.ScoredTerm, error) {
	f.calls++
	if _, err := src.CountAll(); err != nil {
		return nil, err
	}
	return f.terms, nil
}

type recorder struct {
	runs []report.Run
}

func (r *recorder) Report(_ context.Context, run report.Run) error {
	r.runs = append(r.runs, run)
	return nil
}

func writeCorpus(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "corpus.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for i := 0; i < 9; i++ {
		w, err := zw.Create(fmt.Sprintf("papers/p%d.txt", i))
		require.NoError(t, err)
		_, err = fmt.Fprintf(w, "Machine learning and neural network models, paper %d.", i)
		require.NoError(t, err)
	}
	w, err := zw.Create("papers/broken.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte{0xc3, 0x28})
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Corpus.Path = writeCorpus(t, dir)
	cfg.Corpus.Format = "text"
	cfg.Gold.Path = filepath.Join(dir, "gold.txt")
	require.NoError(t, os.WriteFile(cfg.Gold.Path, []byte("machine learning\nneural network\n"), 0o644))
	cfg.Index.Home = filepath.Join(dir, "home")
	cfg.Index.Core = "test"
	cfg.Scorer = config.ScorerConfig{
		RequireExactTermBoundary: true,
		Cutoffs:                  []int{1, 2, 3},
	}
	return cfg
}

func scenarioExtractor() *fixedExtractor {
	return &fixedExtractor{terms: []ranking.ScoredTerm{
		{Surface: "deep learning", Score: 2},
		{Surface: "neural network", Score: 1},
		{Surface: "Machine Learning", Score: 3},
	}}
}

func TestRunReportsEvaluation(t *testing.T) {
	cfg := testConfig(t)
	rec := &recorder{}
	h, err := New(Options{Config: cfg, Extractor: scenarioExtractor(), Reporters: []report.Reporter{rec}})
	require.NoError(t, err)
	defer h.Close()

	run, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReported, h.State())
	assert.Equal(t, "Reported", run.State)
	assert.NotEmpty(t, run.ID)

	assert.Equal(t, 9, run.Processed)
	assert.Equal(t, 9, run.Indexed)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, int64(9), run.Validated)
	assert.Equal(t, 2, run.GoldTerms)

	require.NotNil(t, run.Result)
	assert.Equal(t, 1.0, run.Result.PrecisionByCutoff[0])
	assert.Equal(t, 0.5, run.Result.PrecisionByCutoff[1])
	assert.InDelta(t, 0.667, run.Result.PrecisionByCutoff[2], 1e-3)
	assert.Equal(t, 1.0, run.Result.Recall)

	require.Len(t, run.TopTerms, 3)
	assert.Equal(t, "Machine Learning", run.TopTerms[0].Surface)
	assert.Equal(t, 1, run.TopTerms[0].Rank)
	assert.Equal(t, "neural network", run.TopTerms[2].Surface)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, run, rec.runs[0])
}

func TestRunCapsReportedTopTerms(t *testing.T) {
	cfg := testConfig(t)
	ext := &fixedExtractor{}
	for i := 0; i < reportedTopTerms+5; i++ {
		ext.terms = append(ext.terms, ranking.ScoredTerm{Surface: fmt.Sprintf("term %d", i), Score: float64(i)})
	}
	h, err := New(Options{Config: cfg, Extractor: ext})
	require.NoError(t, err)
	defer h.Close()

	run, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, run.TopTerms, reportedTopTerms)
	assert.Equal(t, fmt.Sprintf("term %d", reportedTopTerms+4), run.TopTerms[0].Surface)
	assert.Equal(t, reportedTopTerms+5, run.Result.Ranked)
}

func TestRunAbortsWhenIndexLockCannotBeCleared(t *testing.T) {
	cfg := testConfig(t)
	// a non-empty directory in place of the lock file cannot be removed
	lock := filepath.Join(indexer.IndexDir(cfg.Index), indexer.LockFileName)
	require.NoError(t, os.MkdirAll(lock, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lock, "pid"), []byte("4242\n"), 0o644))

	rec := &recorder{}
	ext := scenarioExtractor()
	h, err := New(Options{Config: cfg, Extractor: ext, Reporters: []report.Reporter{rec}})
	require.NoError(t, err)
	defer h.Close()

	run, err := h.Run(context.Background())
	require.ErrorIs(t, err, apperrors.ErrIndexLocked)
	assert.Equal(t, StateAborted, h.State())
	assert.Equal(t, "Aborted", run.State)
	assert.Equal(t, "CorpusLoaded", run.Reached)
	assert.Nil(t, run.Result)
	assert.Zero(t, ext.calls)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, "Aborted", rec.runs[0].State)
	assert.Equal(t, "CorpusLoaded", rec.runs[0].Reached)
	assert.Contains(t, rec.runs[0].Error, indexer.LockFileName)
}

func TestRunAbortsWithoutGold(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.Remove(cfg.Gold.Path))
	rec := &recorder{}
	ext := scenarioExtractor()
	h, err := New(Options{Config: cfg, Extractor: ext, Reporters: []report.Reporter{rec}})
	require.NoError(t, err)
	defer h.Close()

	run, err := h.Run(context.Background())
	require.ErrorIs(t, err, apperrors.ErrGoldStandardUnavailable)
	assert.Equal(t, StateAborted, h.State())
	assert.Equal(t, "Aborted", run.State)
	assert.Equal(t, "Init", run.Reached)
	assert.Nil(t, run.Result)
	assert.NotEmpty(t, run.Error)
	assert.Zero(t, ext.calls)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, "Aborted", rec.runs[0].State)
}

func TestRunAbortsWithoutCorpus(t *testing.T) {
	cfg := testConfig(t)
	cfg.Corpus.Path = filepath.Join(t.TempDir(), "missing.zip")
	h, err := New(Options{Config: cfg, Extractor: scenarioExtractor()})
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Run(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrCorpusUnavailable)
	assert.True(t, apperrors.IsFatal(err))
}

func TestRunAbortsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	h, err := New(Options{Config: cfg, Extractor: scenarioExtractor()})
	require.NoError(t, err)
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := h.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "CorpusLoaded", run.Reached)
	assert.Equal(t, apperrors.ExitInterrupted, apperrors.ExitCode(err))
}

func TestRunReusesOpenIndex(t *testing.T) {
	cfg := testConfig(t)
	h, err := New(Options{Config: cfg, Extractor: scenarioExtractor()})
	require.NoError(t, err)

	first, err := h.Run(context.Background())
	require.NoError(t, err)
	engine := h.engine
	second, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Same(t, engine, h.engine)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Validated, second.Validated)
	assert.Equal(t, first.Result, second.Result)

	lock := filepath.Join(indexer.IndexDir(cfg.Index), indexer.LockFileName)
	assert.FileExists(t, lock)
	require.NoError(t, h.Close())
	assert.NoFileExists(t, lock)
	require.NoError(t, h.Close())
}

func TestRunWithCandidateExtractor(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extract.MinFrequency = 1
	cfg.Scorer.UseLemmaMatching = true
	ext, err := extract.New(config.ExtractConfig{Algorithm: "ttf", MinFrequency: 1})
	require.NoError(t, err)
	h, err := New(Options{Config: cfg, Extractor: ext, Lemmatizer: lemma.NewEnglish()})
	require.NoError(t, err)
	defer h.Close()

	run, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ttf", run.Algorithm)
	assert.Positive(t, run.Candidates)
	require.NotNil(t, run.Result)
	assert.Equal(t, 1.0, run.Result.Recall, "both gold terms occur in every document")
}

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, pkgredis.ErrMiss
}

func (m *memBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memBackend) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func TestRunUsesResultCache(t *testing.T) {
	cfg := testConfig(t)
	rc := cache.New(&memBackend{data: make(map[string][]byte)}, time.Hour, nil)
	h, err := New(Options{Config: cfg, Extractor: scenarioExtractor(), Cache: rc})
	require.NoError(t, err)
	defer h.Close()

	first, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	second, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Result, second.Result)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)

	cfg := testConfig(t)
	cfg.Scorer.UseLemmaMatching = true
	_, err = New(Options{Config: cfg, Extractor: scenarioExtractor()})
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}
