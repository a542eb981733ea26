// Package report publishes the outcome of a benchmark run: as log lines, as
// Prometheus gauges, and as a RunCompleted event on Kafka.
package report

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/resilience"
)

// Run summarises one harness run. State is the final state and Reached the
// last state completed before it. Result is nil when the run aborted before
// evaluation.
type Run struct {
	ID         string               `json:"run_id"`
	Algorithm  string               `json:"algorithm"`
	State      string               `json:"state"`
	Reached    string               `json:"reached"`
	CorpusPath string               `json:"corpus_path"`
	GoldPath   string               `json:"gold_path"`
	GoldTerms  int                  `json:"gold_terms"`
	Processed  int                  `json:"processed"`
	Indexed    int                  `json:"indexed"`
	Skipped    int                  `json:"skipped"`
	Failed     int                  `json:"failed"`
	Committed  int64                `json:"committed"`
	Validated  int64                `json:"validated"`
	Candidates int                  `json:"candidates"`
	TopTerms   []ranking.RankedTerm `json:"top_terms,omitempty"`
	Result     *scorer.Result       `json:"result,omitempty"`
	CacheHit   bool                 `json:"cache_hit"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Error      string               `json:"error,omitempty"`
}

// Succeeded reports whether the run reached evaluation.
func (r Run) Succeeded() bool {
	return r.Result != nil && r.Error == ""
}

func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

type Reporter interface {
	Report(ctx context.Context, run Run) error
}

// Func adapts a function to Reporter.
type Func func(ctx context.Context, run Run) error

func (f Func) Report(ctx context.Context, run Run) error {
	return f(ctx, run)
}

// LogReporter writes the indexed document count, the leading ranked terms,
// precision at each cutoff in cutoff order, and overall recall.
type LogReporter struct {
	logger *slog.Logger
}

func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger.With("component", "report")}
}

func (l *LogReporter) Report(_ context.Context, run Run) error {
	logger := l.logger.With("run_id", run.ID, "algorithm", run.Algorithm)
	if !run.Succeeded() {
		logger.Error("benchmark run failed",
			"state", run.State,
			"reached", run.Reached,
			"indexed", run.Indexed,
			"error", run.Error,
			"duration", run.Duration(),
		)
		return nil
	}
	logger.Info("benchmark results",
		"indexed", run.Indexed,
		"validated", run.Validated,
		"skipped_entries", run.Skipped,
		"failed_documents", run.Failed,
		"gold_terms", run.GoldTerms,
		"ranked_terms", run.Result.Ranked,
		"cache_hit", run.CacheHit,
	)
	for _, t := range run.TopTerms {
		logger.Info("top ranked term", "rank", t.Rank, "term", t.Surface, "score", t.Score)
	}
	for i, k := range run.Result.Cutoffs {
		logger.Info("precision at cutoff",
			"cutoff", k,
			"precision", run.Result.PrecisionByCutoff[i],
			"hits", run.Result.HitsByCutoff[i],
		)
	}
	logger.Info("overall recall",
		"recall", run.Result.Recall,
		"matched_gold", run.Result.MatchedGold,
		"distinct_gold", run.Result.DistinctGold,
		"duration", run.Duration(),
	)
	return nil
}

// MetricsReporter counts the run by final state and, for evaluated runs,
// publishes precision and recall gauges.
type MetricsReporter struct {
	metrics *metrics.Metrics
}

func NewMetricsReporter(m *metrics.Metrics) *MetricsReporter {
	return &MetricsReporter{metrics: m}
}

func (m *MetricsReporter) Report(_ context.Context, run Run) error {
	m.metrics.ObserveRun(run.Algorithm, run.State)
	if run.Result != nil {
		m.metrics.SetEvaluation(run.Algorithm, run.Result.Cutoffs, run.Result.PrecisionByCutoff,
			run.Result.Recall, run.Result.Ranked)
	}
	return nil
}

// Publisher sends a JSON value under a key.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, value any) error
}

// EventReporter publishes every run, failed or not, keyed by run id.
type EventReporter struct {
	publisher Publisher
}

func NewEventReporter(p Publisher) *EventReporter {
	return &EventReporter{publisher: p}
}

func (e *EventReporter) Report(ctx context.Context, run Run) error {
	return e.publisher.PublishJSON(ctx, run.ID, run)
}

// Retrying retries r with backoff. Reporters backed by a network sink are
// wrapped so a broker or database blip does not lose the run.
func Retrying(name string, r Reporter, cfg resilience.RetryConfig) Reporter {
	return Func(func(ctx context.Context, run Run) error {
		return resilience.Retry(ctx, name, cfg, func(ctx context.Context) error {
			return r.Report(ctx, run)
		})
	})
}

// All runs every reporter and joins their errors.
func All(ctx context.Context, run Run, reporters ...Reporter) error {
	var errs []error
	for _, r := range reporters {
		if err := r.Report(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
