package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/report"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/config"
)

func TestPrintHistory(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []report.Run{
		{
			ID:         "run-1",
			Algorithm:  "cvalue",
			State:      "Reported",
			StartedAt:  started,
			FinishedAt: started.Add(1500 * time.Millisecond),
			Result: &scorer.Result{
				Cutoffs:           []int{50, 100},
				PrecisionByCutoff: []float64{0.5, 0.25},
				Recall:            0.125,
			},
		},
		{ID: "run-2", Algorithm: "tfidf", State: "Aborted", StartedAt: started, FinishedAt: started},
	}

	var buf bytes.Buffer
	require.NoError(t, printHistory(&buf, runs))
	out := buf.String()
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "P@50=0.500 P@100=0.250")
	assert.Contains(t, out, "0.125")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "2026-03-01 12:00:00")
	assert.Contains(t, out, "Aborted")
}

func TestRunFlagsApply(t *testing.T) {
	cfg := mustDefaultConfig(t)
	flags := runFlags{corpus: "c.zip", gold: "g.txt", format: "text"}
	flags.apply(cfg)
	assert.Equal(t, "c.zip", cfg.Corpus.Path)
	assert.Equal(t, "g.txt", cfg.Gold.Path)
	assert.Equal(t, "text", cfg.Corpus.Format)
	assert.Equal(t, []string{cfg.Extract.Algorithm}, flags.algorithms)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := rootCmd()
	for _, name := range []string{"run", "collect", "history", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestVersionCommand(t *testing.T) {
	root := rootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "termbench dev (unknown)\n", buf.String())
}

func mustDefaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}
