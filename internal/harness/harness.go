// Package harness drives one benchmark run through its states:
//
//	Init -> CorpusLoaded -> Indexed -> Extracted -> Evaluated -> Reported
//
// A failure in any state moves the run to Aborted. Aborted runs are still
// passed to every reporter, carrying the last state reached and the error.
package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/gold"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/lemma"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/report"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termbench/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/tracing"
)

type State string

const (
	StateInit         State = "Init"
	StateCorpusLoaded State = "CorpusLoaded"
	StateIndexed      State = "Indexed"
	StateExtracted    State = "Extracted"
	StateEvaluated    State = "Evaluated"
	StateReported     State = "Reported"
	StateAborted      State = "Aborted"
)

// reportedTopTerms is how many leading ranked terms a run report carries.
const reportedTopTerms = 10

// next is the only legal successor of each non-terminal state.
var next = map[State]State{
	StateInit:         StateCorpusLoaded,
	StateCorpusLoaded: StateIndexed,
	StateIndexed:      StateExtracted,
	StateExtracted:    StateEvaluated,
	StateEvaluated:    StateReported,
}

// Options wires a Harness. Config and Extractor are required, Lemmatizer
// only when lemma matching is on. LemmatizerID distinguishes lemmatizer
// setups in result cache keys; when empty, a lemmatizer with a Fingerprint
// method supplies it.
type Options struct {
	Config       *config.Config
	Extractor    extract.Extractor
	Lemmatizer   lemma.Lemmatizer
	LemmatizerID string
	Cache        *cache.ResultCache
	Reporters    []report.Reporter
	Metrics      *metrics.Metrics
}

// Harness owns the index handle across runs. It is not safe for concurrent
// use.
type Harness struct {
	cfg       *config.Config
	extractor extract.Extractor
	lem       lemma.Lemmatizer
	lemID     string
	cache     *cache.ResultCache
	reporters []report.Reporter
	metrics   *metrics.Metrics
	engine    *indexer.Engine
	state     State
}

func New(opts Options) (*Harness, error) {
	if opts.Config == nil {
		return nil, apperrors.New(apperrors.ErrInvalidConfig, "harness requires a config")
	}
	if opts.Extractor == nil {
		return nil, apperrors.New(apperrors.ErrInvalidConfig, "harness requires an extractor")
	}
	if opts.Config.Scorer.UseLemmaMatching && opts.Lemmatizer == nil {
		return nil, apperrors.New(apperrors.ErrInvalidConfig, "lemma matching requires a lemmatizer")
	}
	lemID := opts.LemmatizerID
	if fp, ok := opts.Lemmatizer.(interface{ Fingerprint() string }); ok && lemID == "" {
		lemID = fp.Fingerprint()
	}
	return &Harness{
		cfg:       opts.Config,
		extractor: opts.Extractor,
		lem:       opts.Lemmatizer,
		lemID:     lemID,
		cache:     opts.Cache,
		reporters: opts.Reporters,
		metrics:   opts.Metrics,
		state:     StateInit,
	}, nil
}

// State is the state the most recent run ended in.
func (h *Harness) State() State {
	return h.state
}

// run carries one run's intermediate values between states.
type run struct {
	report report.Run
	gold   []string
	corpus *corpus.Corpus
	terms  []ranking.ScoredTerm
	logger *slog.Logger
}

// Run executes one benchmark run. The returned report is complete whether or
// not the run aborted; err is non-nil exactly when it aborted.
func (h *Harness) Run(ctx context.Context) (report.Run, error) {
	id := uuid.NewString()
	ctx = logger.WithRunID(ctx, id)
	r := &run{
		report: report.Run{
			ID:         id,
			Algorithm:  h.extractor.Name(),
			State:      string(StateInit),
			CorpusPath: h.cfg.Corpus.Path,
			GoldPath:   h.cfg.Gold.Path,
			StartedAt:  time.Now().UTC(),
		},
		logger: logger.FromContext(ctx).With("component", "harness", "algorithm", h.extractor.Name()),
	}
	h.state = StateInit
	r.logger.Info("benchmark run starting",
		"corpus", h.cfg.Corpus.Path,
		"gold", h.cfg.Gold.Path,
		"cutoffs", h.cfg.Scorer.Cutoffs,
	)

	stages := []struct {
		enter State
		fn    func(context.Context, *run) error
	}{
		{StateCorpusLoaded, h.loadInputs},
		{StateIndexed, h.index},
		{StateExtracted, h.extract},
		{StateEvaluated, h.evaluate},
	}
	ctx, root := tracing.StartSpan(ctx, "benchmark_run", id)
	defer func() {
		root.End(nil)
		root.Log(r.logger)
	}()
	for _, stage := range stages {
		sctx, span := tracing.StartChildSpan(ctx, string(stage.enter))
		err := stage.fn(sctx, r)
		elapsed := span.End(err)
		if err != nil {
			return h.abort(ctx, r, err)
		}
		h.metrics.ObserveStage(string(stage.enter), elapsed)
		if err := h.transition(r, stage.enter); err != nil {
			return h.abort(ctx, r, err)
		}
	}

	r.report.FinishedAt = time.Now().UTC()
	if err := h.transition(r, StateReported); err != nil {
		return h.abort(ctx, r, err)
	}
	h.publish(ctx, r)
	return r.report, nil
}

func (h *Harness) transition(r *run, to State) error {
	if next[h.state] != to {
		return fmt.Errorf("illegal transition %s -> %s", h.state, to)
	}
	r.logger.Debug("state transition", "from", h.state, "to", to)
	h.state = to
	r.report.Reached = string(to)
	r.report.State = string(to)
	return nil
}

func (h *Harness) abort(ctx context.Context, r *run, err error) (report.Run, error) {
	r.logger.Error("benchmark run aborted", "state", h.state, "error", err)
	h.state = StateAborted
	r.report.Reached = r.report.State
	r.report.State = string(StateAborted)
	r.report.Error = err.Error()
	r.report.FinishedAt = time.Now().UTC()
	h.publish(ctx, r)
	return r.report, err
}

// publish runs every reporter. Reporter failures are logged only.
func (h *Harness) publish(ctx context.Context, r *run) {
	// reporters still run when the run itself was interrupted
	ctx = context.WithoutCancel(ctx)
	if err := report.All(ctx, r.report, h.reporters...); err != nil {
		r.logger.Error("reporting run failed", "error", err)
	}
}

// loadInputs reads the gold standard (Init) and opens the corpus archive.
func (h *Harness) loadInputs(_ context.Context, r *run) error {
	terms, err := gold.Load(h.cfg.Gold.Path)
	if err != nil {
		return err
	}
	r.gold = terms
	r.report.GoldTerms = len(terms)

	parser, err := corpus.NewParser(h.cfg.Corpus.Format)
	if err != nil {
		return err
	}
	c, err := corpus.NewLoader(parser).Open(h.cfg.Corpus.Path)
	if err != nil {
		return err
	}
	r.corpus = c
	return nil
}

func (h *Harness) index(ctx context.Context, r *run) error {
	if h.engine == nil {
		engine, err := indexer.OpenIndex(h.cfg.Index)
		if err != nil {
			return err
		}
		h.engine = engine
	} else {
		r.logger.Info("reusing open index", "dir", h.engine.Dir())
	}

	ix := indexer.New(h.engine, h.metrics)
	stats, err := ix.Index(ctx, r.corpus.Documents())
	r.report.Processed = stats.Processed
	r.report.Indexed = stats.Indexed
	r.report.Failed = stats.Failed
	r.report.Committed = stats.Committed
	r.report.Skipped = r.corpus.Skipped()
	h.metrics.ObserveSkippedEntries(r.corpus.Skipped())
	tracing.SetAttr(ctx, "indexed", stats.Indexed)
	tracing.SetAttr(ctx, "skipped", r.report.Skipped)
	if err != nil {
		return err
	}
	r.report.Validated = ix.Validate()
	if r.report.Validated != int64(stats.Indexed) {
		r.logger.Warn("validated document count differs from indexed count",
			"validated", r.report.Validated,
			"indexed", stats.Indexed,
		)
	}
	return nil
}

func (h *Harness) extract(ctx context.Context, r *run) error {
	terms, err := h.extractor.Extract(ctx, h.engine)
	if err != nil {
		return fmt.Errorf("extracting with %s: %w", h.extractor.Name(), err)
	}
	r.terms = terms
	r.report.Candidates = len(terms)
	tracing.SetAttr(ctx, "candidates", len(terms))
	r.logger.Info("candidate terms extracted", "candidates", len(terms))
	return nil
}

func (h *Harness) evaluate(ctx context.Context, r *run) error {
	ordered := ranking.Rank(r.terms)
	r.report.TopTerms = ranking.Top(ordered, reportedTopTerms)
	ranked := ranking.Surfaces(ordered)
	cfg := scorer.FromConfig(h.cfg.Scorer)
	cutoffs := h.cfg.Scorer.Cutoffs
	compute := func() (scorer.Result, error) {
		return scorer.Evaluate(h.lem, r.gold, ranked, cfg, cutoffs)
	}

	var (
		res scorer.Result
		hit bool
		err error
	)
	if h.cache != nil {
		key := cache.Key(cache.Inputs{
			Gold:       r.gold,
			Ranked:     ranked,
			Config:     cfg,
			Cutoffs:    cutoffs,
			Lemmatizer: h.lemID,
		})
		res, hit, err = h.cache.GetOrCompute(ctx, key, compute)
	} else {
		res, err = compute()
	}
	if err != nil {
		return fmt.Errorf("evaluating ranked terms: %w", err)
	}
	r.report.Result = &res
	r.report.CacheHit = hit
	tracing.SetAttr(ctx, "cache_hit", hit)
	return nil
}

// Close releases the index handle. A later Run opens the index again.
func (h *Harness) Close() error {
	if h.engine == nil {
		return nil
	}
	err := h.engine.Close()
	h.engine = nil
	if err != nil {
		return fmt.Errorf("closing index: %w", err)
	}
	return nil
}
