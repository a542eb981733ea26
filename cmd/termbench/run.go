package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/harness"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/lemma"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/report"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/store"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/termbench/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/resilience"
)

type runFlags struct {
	algorithms []string
	corpus     string
	gold       string
	format     string
}

func runCmd(configPath *string) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark for one or more algorithms",
		Long: `Run the benchmark.

Each algorithm given with --algorithm gets its own run over the same corpus,
gold standard and index directory. Results are always logged. When enabled in
the config they are also written to PostgreSQL, published to Kafka and
exported as Prometheus metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			flags.apply(cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			return runBenchmark(ctx, cfg, flags.algorithms)
		},
	}

	cmd.Flags().StringSliceVarP(&flags.algorithms, "algorithm", "a", nil, fmt.Sprintf("ranking algorithm, repeatable (%v)", extract.Algorithms))
	cmd.Flags().StringVar(&flags.corpus, "corpus", "", "corpus zip archive (overrides corpus.path)")
	cmd.Flags().StringVar(&flags.gold, "gold", "", "gold standard file (overrides gold.path)")
	cmd.Flags().StringVar(&flags.format, "format", "", "corpus entry format: acl-xml or text (overrides corpus.format)")
	return cmd
}

func (f *runFlags) apply(cfg *config.Config) {
	if f.corpus != "" {
		cfg.Corpus.Path = f.corpus
	}
	if f.gold != "" {
		cfg.Gold.Path = f.gold
	}
	if f.format != "" {
		cfg.Corpus.Format = f.format
	}
	if len(f.algorithms) == 0 {
		f.algorithms = []string{cfg.Extract.Algorithm}
	}
}

// sinks holds the optional infrastructure a run reports to.
type sinks struct {
	metrics   *metrics.Metrics
	reporters []report.Reporter
	cache     *cache.ResultCache
	closers   []func()
}

func (s *sinks) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openSinks connects every enabled sink. A sink that cannot be reached is
// logged and left out of the run.
func openSinks(ctx context.Context, cfg *config.Config) *sinks {
	s := &sinks{metrics: metrics.New(nil)}
	s.reporters = append(s.reporters, report.NewLogReporter(nil), report.NewMetricsReporter(s.metrics))

	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(s.metrics, cfg.Metrics.Port)
		s.closers = append(s.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(ctx)
		})
	}

	if cfg.Postgres.Enabled {
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("run history disabled", "error", err)
		} else {
			runs := store.New(client)
			if err := runs.EnsureSchema(ctx); err != nil {
				slog.Error("run history disabled", "error", err)
				client.Close()
			} else {
				s.reporters = append(s.reporters, report.Retrying("store run", runs, resilience.RetryConfig{}))
				s.closers = append(s.closers, func() { client.Close() })
			}
		}
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RunCompleted)
		s.reporters = append(s.reporters, report.Retrying("publish run", report.NewEventReporter(producer), resilience.RetryConfig{}))
		s.closers = append(s.closers, func() { producer.Close() })
	}

	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Error("result cache disabled", "error", err)
		} else {
			s.cache = cache.New(client, cfg.Redis.CacheTTL, s.metrics)
			s.closers = append(s.closers, func() { client.Close() })
		}
	}
	return s
}

func runBenchmark(ctx context.Context, cfg *config.Config, algorithms []string) error {
	var lem lemma.Lemmatizer
	if cfg.Scorer.UseLemmaMatching {
		english, err := lemma.LoadEnglish(cfg.Lemma.ExceptionsPath)
		if err != nil {
			return err
		}
		lem = english
	}

	extractors := make([]extract.Extractor, 0, len(algorithms))
	for _, name := range algorithms {
		ec := cfg.Extract
		ec.Algorithm = name
		e, err := extract.New(ec)
		if err != nil {
			return err
		}
		extractors = append(extractors, e)
	}

	s := openSinks(ctx, cfg)
	defer s.close()

	var firstErr error
	for _, e := range extractors {
		h, err := harness.New(harness.Options{
			Config:     cfg,
			Extractor:  e,
			Lemmatizer: lem,
			Cache:      s.cache,
			Reporters:  s.reporters,
			Metrics:    s.metrics,
		})
		if err != nil {
			return err
		}
		_, err = h.Run(ctx)
		if closeErr := h.Close(); closeErr != nil {
			slog.Error("closing harness", "error", closeErr)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}
	return firstErr
}
