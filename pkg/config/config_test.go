package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/termbench/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Scorer.UseLemmaMatching)
	assert.False(t, cfg.Scorer.CaseSensitive)
	assert.True(t, cfg.Scorer.RequireExactTermBoundary)
	assert.Equal(t, 2, cfg.Scorer.MinTermLength)
	assert.Equal(t, 100, cfg.Scorer.MaxTermLength)
	assert.Equal(t, 1, cfg.Scorer.MinTokenCount)
	assert.Equal(t, 10, cfg.Scorer.MaxTokenCount)
	assert.Len(t, cfg.Scorer.Cutoffs, 16)
	assert.Equal(t, 50, cfg.Scorer.Cutoffs[0])
	assert.Equal(t, "ACLRDTEC", cfg.Index.Core)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	yml := `
corpus:
  path: /data/corpus.zip
  format: text
gold:
  path: /data/terms.txt
scorer:
  caseSensitive: true
  cutoffs: [1, 2, 3]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("TB_GOLD_PATH", "/override/terms.txt")
	t.Setenv("TB_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/corpus.zip", cfg.Corpus.Path)
	assert.Equal(t, "text", cfg.Corpus.Format)
	assert.Equal(t, "/override/terms.txt", cfg.Gold.Path)
	assert.True(t, cfg.Scorer.CaseSensitive)
	assert.Equal(t, []int{1, 2, 3}, cfg.Scorer.Cutoffs)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	// untouched keys keep their defaults
	assert.Equal(t, 100, cfg.Scorer.MaxTermLength)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.ErrorIs(t, cfg.Validate(), apperrors.ErrInvalidConfig)

	cfg.Corpus.Path = "corpus.zip"
	cfg.Gold.Path = "terms.txt"
	require.NoError(t, cfg.Validate())

	cfg.Scorer.MinTokenCount = 5
	cfg.Scorer.MaxTokenCount = 2
	assert.ErrorIs(t, cfg.Validate(), apperrors.ErrInvalidConfig)

	cfg.Scorer.MaxTokenCount = 0
	assert.NoError(t, cfg.Validate())

	cfg.Corpus.Format = "pdf"
	assert.ErrorIs(t, cfg.Validate(), apperrors.ErrInvalidConfig)
}
