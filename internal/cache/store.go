// Package cache is the Redis-backed result cache. It is a pure
// accelerator: every failure degrades to a miss and the pipeline
// continues against the row store.
package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "hedge-mcp/internal/common/errors"
	"hedge-mcp/internal/common/logger"
	"hedge-mcp/internal/common/metrics"
	"hedge-mcp/internal/hedge/cachekey"
	"hedge-mcp/internal/models"
)

const usagePrefix = "usage:"

// Store wraps Redis with the key/TTL strategy and usage-based TTL
// promotion.
type Store struct {
	rdb      *redis.Client
	strategy *cachekey.Strategy
	logger   logger.Logger

	hits     atomic.Int64
	misses   atomic.Int64
	promoted atomic.Int64
}

func NewStore(rdb *redis.Client, strategy *cachekey.Strategy, log logger.Logger) *Store {
	return &Store{
		rdb:      rdb,
		strategy: strategy,
		logger:   log.WithFields(map[string]interface{}{"component": "cache"}),
	}
}

// Get fetches the cached value for key. A hit counts as a successful
// use: the usage counter is incremented and, on the first use of a
// promotable entry, the key's TTL is removed. Redis errors are reported
// as CacheError but callers treat them as a miss.
func (s *Store) Get(ctx context.Context, key, queryType string) (json.RawMessage, bool, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		s.misses.Add(1)
		metrics.CacheMisses.Inc()
		return nil, false, nil
	}
	if err != nil {
		s.misses.Add(1)
		metrics.CacheMisses.Inc()
		return nil, false, apperrors.NewCacheUnavailableError(err)
	}

	s.hits.Add(1)
	metrics.CacheHits.Inc()

	usage, err := s.rdb.Incr(ctx, usagePrefix+key).Result()
	if err == nil && usage == 1 && !cachekey.IsRealTime(queryType) {
		if s.strategy.TTLFor(queryType, usage) == 0 {
			if persisted, err := s.rdb.Persist(ctx, key).Result(); err == nil && persisted {
				s.promoted.Add(1)
			}
		}
	}

	return json.RawMessage(val), true, nil
}

// Set stores value under key with the TTL the strategy assigns for the
// entry's current usage count. Overwrites are last-write-wins; there is
// no coordination between concurrent writers.
func (s *Store) Set(ctx context.Context, key, queryType string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	usage, _ := s.rdb.Get(ctx, usagePrefix+key).Int64()
	ttl := s.strategy.TTLFor(queryType, usage)

	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return apperrors.NewCacheUnavailableError(err)
	}
	return nil
}

// ClearCurrency deletes every result key whose currency tag matches.
// Keys embed the currency as a clear-text segment, so a pattern scan is
// enough; usage counters for deleted keys are removed with them.
func (s *Store) ClearCurrency(ctx context.Context, currency string) (int64, error) {
	pattern := "hedge:*:*:" + currency + ":*"
	var cleared int64

	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := s.rdb.Del(ctx, key, usagePrefix+key).Err(); err != nil {
			return cleared, apperrors.NewCacheUnavailableError(err)
		}
		cleared++
	}
	if err := iter.Err(); err != nil {
		return cleared, apperrors.NewCacheUnavailableError(err)
	}

	s.logger.Info("cleared cache by currency", map[string]interface{}{
		"currency": currency,
		"keys":     cleared,
	})
	return cleared, nil
}

// Stats reports in-process hit/miss/promotion counters plus the number
// of live result keys. There is no eviction bound on promoted keys;
// the key count here is how operators watch growth.
func (s *Store) Stats(ctx context.Context) (models.CacheStats, error) {
	stats := models.CacheStats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Promoted:  s.promoted.Load(),
		Timestamp: time.Now().UTC(),
	}

	var keys int64
	iter := s.rdb.Scan(ctx, 0, "hedge:*", 100).Iterator()
	for iter.Next(ctx) {
		keys++
	}
	if err := iter.Err(); err != nil {
		return stats, apperrors.NewCacheUnavailableError(err)
	}
	stats.Keys = keys
	return stats, nil
}

// Ping reports cache reachability for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Hits and Misses expose the in-process counters for health reporting.
func (s *Store) Hits() int64   { return s.hits.Load() }
func (s *Store) Misses() int64 { return s.misses.Load() }
