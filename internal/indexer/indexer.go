// Package indexer pushes corpus documents into the benchmark index, commits
// them once, and validates the committed document count. The index itself is
// Engine: an in-memory inverted index flushed to immutable .spdx segments.
package indexer

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termbench/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/metrics"
)

// ProgressInterval is how many processed documents pass between progress logs.
const ProgressInterval = 100

// Index is the write side of the index the Indexer feeds.
type Index interface {
	AddDocument(id string, fields map[string]string) error
	Commit() error
	CountAll() (int64, error)
}

// Stats summarises one Index call.
type Stats struct {
	Processed int
	Indexed   int
	Empty     int
	Failed    int
	Committed int64
	CommitErr error
}

type Indexer struct {
	index   Index
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Indexer over idx. m may be nil.
func New(idx Index, m *metrics.Metrics) *Indexer {
	return &Indexer{
		index:   idx,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
}

// OpenIndex clears a stale write lock left by an unclean shutdown and opens
// the engine for cfg.
func OpenIndex(cfg config.IndexConfig) (*Engine, error) {
	if err := ClearStaleLock(IndexDir(cfg)); err != nil {
		return nil, err
	}
	return Open(cfg)
}

// ClearStaleLock removes dir's write lock if one exists. The check is
// advisory: a lock held by a live writer in another process is removed too.
func ClearStaleLock(dir string) error {
	lockPath := filepath.Join(dir, LockFileName)
	if _, err := os.Stat(lockPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.Newf(apperrors.ErrIndexLocked, "inspecting %s: %v", lockPath, err)
	}
	slog.Default().Warn("previous index writer did not shut down cleanly, removing lock",
		"component", "indexer",
		"lock", lockPath,
	)
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return apperrors.Newf(apperrors.ErrIndexLocked, "removing %s: %v", lockPath, err)
	}
	return nil
}

// Index submits every document with non-blank content, then commits once.
// Per-document failures are logged and counted; a commit failure is recorded
// in Stats.CommitErr. The only error returned is ctx's.
func (ix *Indexer) Index(ctx context.Context, docs iter.Seq[corpus.Document]) (Stats, error) {
	var stats Stats
	for doc := range docs {
		if err := ctx.Err(); err != nil {
			ix.logger.Warn("indexing interrupted", "processed", stats.Processed, "error", err)
			return stats, fmt.Errorf("indexing interrupted after %d documents: %w", stats.Processed, err)
		}
		stats.Processed++
		ix.indexOne(doc, &stats)
		if stats.Processed%ProgressInterval == 0 {
			ix.logger.Info("indexing progress",
				"processed", stats.Processed,
				"indexed", stats.Indexed,
				"failed", stats.Failed,
			)
		}
	}

	if err := ix.index.Commit(); err != nil {
		stats.CommitErr = err
		ix.logger.Error("index commit failed", "error", err)
		ix.metrics.ObserveCommit("error")
	} else {
		ix.metrics.ObserveCommit("ok")
	}
	stats.Committed = ix.committed()
	ix.logger.Info("indexing complete",
		"processed", stats.Processed,
		"indexed", stats.Indexed,
		"empty", stats.Empty,
		"failed", stats.Failed,
		"committed", stats.Committed,
	)
	return stats, nil
}

func (ix *Indexer) indexOne(doc corpus.Document, stats *Stats) {
	if strings.TrimSpace(doc.Content) == "" {
		stats.Empty++
		ix.metrics.ObserveDocument("empty")
		return
	}
	if err := ix.index.AddDocument(doc.ID, map[string]string{index.FieldContent: doc.Content}); err != nil {
		stats.Failed++
		ix.metrics.ObserveDocument("failed")
		ix.logger.Error("failed to index document",
			"doc_id", doc.ID,
			"content_length", len(doc.Content),
			"error", err,
		)
		return
	}
	stats.Indexed++
	ix.metrics.ObserveDocument("indexed")
}

func (ix *Indexer) committed() int64 {
	if c, ok := ix.index.(interface{ CommittedDocs() int64 }); ok {
		return c.CommittedDocs()
	}
	return ix.Validate()
}

// Validate issues the match-all query and returns the reported document
// count, or 0 if the query fails.
func (ix *Indexer) Validate() int64 {
	n, err := ix.index.CountAll()
	if err != nil {
		ix.logger.Error("index validation query failed", "error", err)
		return 0
	}
	ix.logger.Info("index validated", "documents", n)
	return n
}
