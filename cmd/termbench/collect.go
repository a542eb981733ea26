package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/collector"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/store"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termbench/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/postgres"
)

func collectCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Store RunCompleted events from Kafka in the run history",
		Long: `Consume RunCompleted events published by benchmark runs and write them to
the PostgreSQL run history. Requires kafka and postgres to be configured.
Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			return runCollector(ctx, cfg)
		},
	}
}

func runCollector(ctx context.Context, cfg *config.Config) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return apperrors.New(apperrors.ErrInvalidConfig, "collect requires kafka.brokers")
	}
	client, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer client.Close()

	runs := store.New(client)
	if err := runs.EnsureSchema(ctx); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		checker := health.NewChecker()
		checker.Register("postgres", client.DB.PingContext)
		checker.Register("kafka", func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka.Brokers)
		})
		shutdown := metrics.StartServer(metrics.New(nil), cfg.Metrics.Port,
			metrics.Route{Pattern: "/health/live", Handler: checker.LiveHandler()},
			metrics.Route{Pattern: "/health/ready", Handler: checker.ReadyHandler()},
		)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(ctx)
		}()
	}

	topic := cfg.Kafka.Topics.RunCompleted
	consumer := kafka.NewConsumer(cfg.Kafka, topic, collector.HandleRunCompleted(runs))
	slog.Info("run collector started", "topic", topic, "group", cfg.Kafka.ConsumerGroup)
	if err := consumer.Run(ctx); err != nil {
		return err
	}
	slog.Info("run collector stopped")
	return nil
}
