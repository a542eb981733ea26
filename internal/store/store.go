// Package store keeps the history of benchmark runs in PostgreSQL: one
// benchmark_runs row per run and one benchmark_precision row per cutoff.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/report"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS benchmark_runs (
    run_id        UUID PRIMARY KEY,
    algorithm     TEXT NOT NULL,
    state         TEXT NOT NULL,
    reached       TEXT NOT NULL DEFAULT '',
    corpus_path   TEXT NOT NULL,
    gold_path     TEXT NOT NULL,
    gold_terms    INTEGER NOT NULL,
    processed     INTEGER NOT NULL,
    indexed       INTEGER NOT NULL,
    skipped       INTEGER NOT NULL,
    failed        INTEGER NOT NULL,
    committed     BIGINT NOT NULL,
    validated     BIGINT NOT NULL,
    candidates    INTEGER NOT NULL,
    ranked        INTEGER,
    recall        DOUBLE PRECISION,
    matched_gold  INTEGER,
    distinct_gold INTEGER,
    cache_hit     BOOLEAN NOT NULL DEFAULT FALSE,
    error         TEXT NOT NULL DEFAULT '',
    started_at    TIMESTAMPTZ NOT NULL,
    finished_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS benchmark_runs_started_at_idx ON benchmark_runs (started_at DESC);

CREATE TABLE IF NOT EXISTS benchmark_precision (
    run_id    UUID NOT NULL REFERENCES benchmark_runs (run_id) ON DELETE CASCADE,
    cutoff    INTEGER NOT NULL,
    precision DOUBLE PRECISION NOT NULL,
    hits      INTEGER NOT NULL,
    PRIMARY KEY (run_id, cutoff)
);
`

const upsertRun = `
INSERT INTO benchmark_runs (
    run_id, algorithm, state, reached, corpus_path, gold_path, gold_terms,
    processed, indexed, skipped, failed, committed, validated, candidates,
    ranked, recall, matched_gold, distinct_gold, cache_hit, error, started_at, finished_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
ON CONFLICT (run_id) DO UPDATE SET
    state = EXCLUDED.state,
    reached = EXCLUDED.reached,
    processed = EXCLUDED.processed,
    indexed = EXCLUDED.indexed,
    skipped = EXCLUDED.skipped,
    failed = EXCLUDED.failed,
    committed = EXCLUDED.committed,
    validated = EXCLUDED.validated,
    candidates = EXCLUDED.candidates,
    ranked = EXCLUDED.ranked,
    recall = EXCLUDED.recall,
    matched_gold = EXCLUDED.matched_gold,
    distinct_gold = EXCLUDED.distinct_gold,
    cache_hit = EXCLUDED.cache_hit,
    error = EXCLUDED.error,
    finished_at = EXCLUDED.finished_at`

const selectRecent = `
SELECT run_id, algorithm, state, reached, corpus_path, gold_path, gold_terms,
       processed, indexed, skipped, failed, committed, validated, candidates,
       ranked, recall, matched_gold, distinct_gold, cache_hit, error, started_at, finished_at
FROM benchmark_runs
ORDER BY started_at DESC
LIMIT $1`

const selectPrecision = `
SELECT cutoff, precision, hits FROM benchmark_precision
WHERE run_id = $1
ORDER BY cutoff`

// RunStore persists report.Run values. It implements report.Reporter.
type RunStore struct {
	client *postgres.Client
	logger *slog.Logger
}

func New(client *postgres.Client) *RunStore {
	return &RunStore{
		client: client,
		logger: slog.Default().With("component", "run-store"),
	}
}

// EnsureSchema creates the history tables if they do not exist.
func (s *RunStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.client.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating run history schema: %w", err)
	}
	return nil
}

// Save writes run and its per-cutoff precision in one transaction. Saving the
// same run id again replaces the earlier values.
func (s *RunStore) Save(ctx context.Context, run report.Run) error {
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		var (
			ranked, matched, distinct sql.NullInt64
			recall                    sql.NullFloat64
		)
		if r := run.Result; r != nil {
			ranked = sql.NullInt64{Int64: int64(r.Ranked), Valid: true}
			matched = sql.NullInt64{Int64: int64(r.MatchedGold), Valid: true}
			distinct = sql.NullInt64{Int64: int64(r.DistinctGold), Valid: true}
			recall = sql.NullFloat64{Float64: r.Recall, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, upsertRun,
			run.ID, run.Algorithm, run.State, run.Reached, run.CorpusPath, run.GoldPath, run.GoldTerms,
			run.Processed, run.Indexed, run.Skipped, run.Failed, run.Committed, run.Validated, run.Candidates,
			ranked, recall, matched, distinct, run.CacheHit, run.Error, run.StartedAt, run.FinishedAt,
		); err != nil {
			return fmt.Errorf("upserting run %s: %w", run.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM benchmark_precision WHERE run_id = $1`, run.ID); err != nil {
			return fmt.Errorf("clearing precision of run %s: %w", run.ID, err)
		}
		if run.Result == nil {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO benchmark_precision (run_id, cutoff, precision, hits) VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("preparing precision insert: %w", err)
		}
		defer stmt.Close()
		for i, k := range run.Result.Cutoffs {
			if _, err := stmt.ExecContext(ctx, run.ID, k, run.Result.PrecisionByCutoff[i], run.Result.HitsByCutoff[i]); err != nil {
				return fmt.Errorf("inserting precision@%d of run %s: %w", k, run.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("run saved", "run_id", run.ID, "state", run.State)
	return nil
}

// Report saves run.
func (s *RunStore) Report(ctx context.Context, run report.Run) error {
	return s.Save(ctx, run)
}

// Recent returns up to limit runs, newest first.
func (s *RunStore) Recent(ctx context.Context, limit int) ([]report.Run, error) {
	rows, err := s.client.DB.QueryContext(ctx, selectRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := make([]report.Run, 0)
	for rows.Next() {
		var (
			run                       report.Run
			ranked, matched, distinct sql.NullInt64
			recall                    sql.NullFloat64
		)
		if err := rows.Scan(
			&run.ID, &run.Algorithm, &run.State, &run.Reached, &run.CorpusPath, &run.GoldPath, &run.GoldTerms,
			&run.Processed, &run.Indexed, &run.Skipped, &run.Failed, &run.Committed, &run.Validated, &run.Candidates,
			&ranked, &recall, &matched, &distinct, &run.CacheHit, &run.Error, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if recall.Valid {
			run.Result = &scorer.Result{
				Ranked:       int(ranked.Int64),
				Recall:       recall.Float64,
				MatchedGold:  int(matched.Int64),
				DistinctGold: int(distinct.Int64),
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for i := range runs {
		if runs[i].Result == nil {
			continue
		}
		if err := s.loadPrecision(ctx, runs[i].ID, runs[i].Result); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *RunStore) loadPrecision(ctx context.Context, runID string, res *scorer.Result) error {
	rows, err := s.client.DB.QueryContext(ctx, selectPrecision, runID)
	if err != nil {
		return fmt.Errorf("querying precision of run %s: %w", runID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cutoff, hits int
			precision    float64
		)
		if err := rows.Scan(&cutoff, &precision, &hits); err != nil {
			return fmt.Errorf("scanning precision of run %s: %w", runID, err)
		}
		res.Cutoffs = append(res.Cutoffs, cutoff)
		res.PrecisionByCutoff = append(res.PrecisionByCutoff, precision)
		res.HitsByCutoff = append(res.HitsByCutoff, hits)
	}
	return rows.Err()
}
