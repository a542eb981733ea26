// Package cache memoizes evaluation results in Redis, keyed by a fingerprint
// of everything the scorer reads. Concurrent computations of the same key
// are collapsed into one.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/termbench/pkg/redis"
)

const keyPrefix = "termbench:eval:"

// Backend stores opaque values. Get returns pkgredis.ErrMiss for absent keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// Inputs identifies an evaluation. Lemmatizer is a fingerprint of the
// lemmatizer's rules, such as lemma.English.Fingerprint, so that a changed
// exception table misses the cache.
type Inputs struct {
	Gold       []string      `json:"gold"`
	Ranked     []string      `json:"ranked"`
	Config     scorer.Config `json:"config"`
	Cutoffs    []int         `json:"cutoffs"`
	Lemmatizer string        `json:"lemmatizer"`
}

// Key returns the cache key for in.
func Key(in Inputs) string {
	data, _ := json.Marshal(in)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s%x", keyPrefix, sum[:16])
}

type ResultCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache over backend. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *ResultCache {
	return &ResultCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "result-cache"),
	}
}

// Get returns the cached result for key. Backend and decode errors are
// logged and reported as a miss.
func (c *ResultCache) Get(ctx context.Context, key string) (scorer.Result, bool) {
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, pkgredis.ErrMiss) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.recordLookup(false)
		return scorer.Result{}, false
	}
	var res scorer.Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Error("cache decode failed", "key", key, "error", err)
		c.recordLookup(false)
		return scorer.Result{}, false
	}
	c.recordLookup(true)
	c.logger.Debug("cache hit", "key", key)
	return res, true
}

func (c *ResultCache) Set(ctx context.Context, key string, res scorer.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Error("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for key or computes and stores it.
// The boolean reports a cache hit.
func (c *ResultCache) GetOrCompute(ctx context.Context, key string, compute func() (scorer.Result, error)) (scorer.Result, bool, error) {
	if res, ok := c.Get(ctx, key); ok {
		return res, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		res, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, res)
		return res, nil
	})
	if err != nil {
		return scorer.Result{}, false, err
	}
	return val.(scorer.Result), false, nil
}

// Invalidate drops every cached evaluation.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.DeletePrefix(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("invalidating result cache: %w", err)
	}
	c.logger.Info("result cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) recordLookup(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	c.metrics.ObserveCacheLookup(hit)
}
