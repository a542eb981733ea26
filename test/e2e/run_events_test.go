// Package e2e contains end-to-end tests that exercise the full event path:
// harness -> Kafka RunCompleted event -> collector -> PostgreSQL history.
//
// Prerequisites:
//   - PostgreSQL reachable with TEST_POSTGRES_* settings
//   - Kafka reachable at E2E_KAFKA_BROKER
//
// Run with:
//
//	go test -v -timeout=120s ./test/e2e/...
package e2e

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/collector"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/harness"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/lemma"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/report"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/store"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/postgres"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

func kafkaConfig(t *testing.T) config.KafkaConfig {
	t.Helper()
	broker := envOrDefault("E2E_KAFKA_BROKER", "localhost:9092")
	topic := "termbench-e2e-" + uuid.NewString()[:8]

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, err := kafkago.DialContext(ctx, "tcp", broker)
	if err != nil {
		t.Skipf("skipping e2e test: kafka unavailable: %v", err)
	}
	defer conn.Close()
	err = conn.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	require.NoError(t, err)

	return config.KafkaConfig{
		Enabled:       true,
		Brokers:       []string{broker},
		ConsumerGroup: topic + "-collector",
		Topics:        config.KafkaTopics{RunCompleted: topic},
	}
}

func postgresClient(t *testing.T) *postgres.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	client, err := postgres.New(ctx, config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "termbench_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "termbench"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping e2e test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func benchConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.Corpus.Path = filepath.Join(dir, "corpus.zip")
	cfg.Corpus.Format = "text"
	f, err := os.Create(cfg.Corpus.Path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for i := 0; i < 10; i++ {
		w, err := zw.Create(fmt.Sprintf("W%02d.txt", i))
		require.NoError(t, err)
		fmt.Fprintf(w, "Word sense disambiguation with a naive bayes classifier, run %d.", i)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	cfg.Gold.Path = filepath.Join(dir, "gold.txt")
	require.NoError(t, os.WriteFile(cfg.Gold.Path, []byte("word sense disambiguation\nnaive bayes classifier\n"), 0o644))
	cfg.Index.Home = filepath.Join(dir, "solr")
	cfg.Scorer.Cutoffs = []int{1, 5}
	return cfg
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestRunCompletedEventReachesHistory publishes a run over Kafka and waits for
// the collector to store it.
func TestRunCompletedEventReachesHistory(t *testing.T) {
	kcfg := kafkaConfig(t)
	client := postgresClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	runs := store.New(client)
	require.NoError(t, runs.EnsureSchema(ctx))

	producer := kafka.NewProducer(kcfg, kcfg.Topics.RunCompleted)
	defer producer.Close()

	cfg := benchConfig(t)
	ext, err := extract.New(config.ExtractConfig{Algorithm: "ttf", MinFrequency: 1})
	require.NoError(t, err)
	h, err := harness.New(harness.Options{
		Config:     cfg,
		Extractor:  ext,
		Lemmatizer: lemma.NewEnglish(),
		Reporters:  []report.Reporter{report.NewEventReporter(producer)},
	})
	require.NoError(t, err)
	defer h.Close()

	run, err := h.Run(ctx)
	require.NoError(t, err)

	collected := make(chan string, 1)
	handle := collector.HandleRunCompleted(runs)
	consumer := kafka.NewConsumer(kcfg, kcfg.Topics.RunCompleted, func(ctx context.Context, key, value []byte) error {
		if err := handle(ctx, key, value); err != nil {
			return err
		}
		select {
		case collected <- string(key):
		default:
		}
		return nil
	})
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- consumer.Run(consumerCtx) }()

	select {
	case key := <-collected:
		assert.Equal(t, run.ID, key)
	case <-ctx.Done():
		t.Fatal("timed out waiting for the run event")
	}
	stopConsumer()
	require.NoError(t, <-done)

	recent, err := runs.Recent(ctx, 50)
	require.NoError(t, err)
	var found bool
	for _, r := range recent {
		if r.ID == run.ID {
			found = true
			assert.Equal(t, "ttf", r.Algorithm)
			assert.Equal(t, run.State, r.State)
			require.NotNil(t, r.Result)
			assert.InDelta(t, run.Result.Recall, r.Result.Recall, 1e-9)
		}
	}
	assert.True(t, found, "run %s not in history", run.ID)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
