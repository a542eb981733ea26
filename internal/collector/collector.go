// Package collector persists RunCompleted events published by benchmark runs
// on other hosts into the run history.
package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/report"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/kafka"
)

// Saver stores a run report.
type Saver interface {
	Save(ctx context.Context, run report.Run) error
}

// HandleRunCompleted returns a handler that decodes each event and saves it.
// Undecodable events are logged and acknowledged so they do not block the
// partition; save failures are returned so the offset is not committed.
func HandleRunCompleted(saver Saver) kafka.MessageHandler {
	logger := slog.Default().With("component", "run-collector")
	return func(ctx context.Context, key, value []byte) error {
		run, err := kafka.DecodeJSON[report.Run](value)
		if err != nil {
			logger.Error("dropping undecodable run event", "key", string(key), "error", err)
			return nil
		}
		if run.ID == "" {
			logger.Error("dropping run event without run id", "key", string(key))
			return nil
		}
		if err := saver.Save(ctx, run); err != nil {
			return fmt.Errorf("saving run %s: %w", run.ID, err)
		}
		logger.Info("run collected",
			"run_id", run.ID,
			"algorithm", run.Algorithm,
			"state", run.State,
		)
		return nil
	}
}
