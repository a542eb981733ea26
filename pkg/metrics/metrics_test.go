package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDocument("indexed")
		m.ObserveCommit("ok")
		m.ObserveSkippedEntries(3)
		m.ObserveStage("indexed", time.Second)
		m.ObserveRun("ttf", "Reported")
		m.ObserveCacheLookup(true)
		m.SetEvaluation("ttf", []int{1}, []float64{1}, 1, 1)
	})
}

func TestSetEvaluation(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SetEvaluation("cvalue", []int{50, 100}, []float64{0.5, 0.25}, 0.75, 120)

	body := scrape(t, m)
	assert.Contains(t, body, `termbench_precision_at_cutoff{algorithm="cvalue",cutoff="50"} 0.5`)
	assert.Contains(t, body, `termbench_precision_at_cutoff{algorithm="cvalue",cutoff="100"} 0.25`)
	assert.Contains(t, body, `termbench_recall{algorithm="cvalue"} 0.75`)
	assert.Contains(t, body, `termbench_ranked_terms{algorithm="cvalue"} 120`)
}

func TestCounters(t *testing.T) {
	m := New(nil)
	m.ObserveDocument("indexed")
	m.ObserveDocument("indexed")
	m.ObserveDocument("failed")
	m.ObserveSkippedEntries(2)
	m.ObserveCacheLookup(false)

	body := scrape(t, m)
	assert.Contains(t, body, `termbench_documents_total{outcome="indexed"} 2`)
	assert.Contains(t, body, `termbench_documents_total{outcome="failed"} 1`)
	assert.Contains(t, body, `termbench_corpus_entries_skipped_total 2`)
	assert.Contains(t, body, `termbench_result_cache_lookups_total{result="miss"} 1`)
}
