// Package metrics defines the Prometheus collectors a benchmark run updates
// and exposes an HTTP handler for scraping. Every Observe method is safe on a
// nil *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the benchmark harness.
type Metrics struct {
	DocumentsTotal     *prometheus.CounterVec
	CorpusSkippedTotal prometheus.Counter
	IndexCommitsTotal  *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	RunsTotal          *prometheus.CounterVec
	PrecisionAtCutoff  *prometheus.GaugeVec
	Recall             *prometheus.GaugeVec
	RankedTerms        *prometheus.GaugeVec
	ResultCacheLookups *prometheus.CounterVec
	registry           prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		DocumentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termbench_documents_total",
				Help: "Documents processed by the indexer by outcome (indexed, empty, failed).",
			},
			[]string{"outcome"},
		),
		CorpusSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "termbench_corpus_entries_skipped_total",
				Help: "Corpus archive entries skipped because they could not be read or parsed.",
			},
		),
		IndexCommitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termbench_index_commits_total",
				Help: "Index commit operations by status.",
			},
			[]string{"status"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termbench_stage_duration_seconds",
				Help:    "Wall time spent in each harness stage.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"stage"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termbench_runs_total",
				Help: "Benchmark runs by final state.",
			},
			[]string{"algorithm", "state"},
		),
		PrecisionAtCutoff: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "termbench_precision_at_cutoff",
				Help: "Precision of the most recent run at each rank cutoff.",
			},
			[]string{"algorithm", "cutoff"},
		),
		Recall: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "termbench_recall",
				Help: "Overall recall of the most recent run.",
			},
			[]string{"algorithm"},
		),
		RankedTerms: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "termbench_ranked_terms",
				Help: "Number of ranked candidate terms produced by the most recent run.",
			},
			[]string{"algorithm"},
		),
		ResultCacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termbench_result_cache_lookups_total",
				Help: "Evaluation result cache lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.DocumentsTotal,
		m.CorpusSkippedTotal,
		m.IndexCommitsTotal,
		m.StageDuration,
		m.RunsTotal,
		m.PrecisionAtCutoff,
		m.Recall,
		m.RankedTerms,
		m.ResultCacheLookups,
	)

	return m
}

func (m *Metrics) ObserveDocument(outcome string) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSkippedEntries(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CorpusSkippedTotal.Add(float64(n))
}

func (m *Metrics) ObserveCommit(status string) {
	if m == nil {
		return
	}
	m.IndexCommitsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveRun(algorithm, state string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(algorithm, state).Inc()
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ResultCacheLookups.WithLabelValues(result).Inc()
}

// SetEvaluation publishes one run's precision values, aligned to cutoffs,
// and its recall.
func (m *Metrics) SetEvaluation(algorithm string, cutoffs []int, precision []float64, recall float64, ranked int) {
	if m == nil {
		return
	}
	for i, k := range cutoffs {
		if i < len(precision) {
			m.PrecisionAtCutoff.WithLabelValues(algorithm, strconv.Itoa(k)).Set(precision[i])
		}
	}
	m.Recall.WithLabelValues(algorithm).Set(recall)
	m.RankedTerms.WithLabelValues(algorithm).Set(float64(ranked))
}

// Handler returns the Prometheus scrape HTTP handler for m's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
