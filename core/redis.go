package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"argus/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ResultCache provides a Redis-based cache for recent detection results and
// indicators, used by the status/health reporting path.
type ResultCache struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

// NewResultCache creates a new Redis-backed result cache.
func NewResultCache(addr, password string, db, poolSize int, logger *zap.SugaredLogger) *ResultCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})

	return &ResultCache{
		client: client,
		logger: logger,
	}
}

// Ping tests the Redis connection.
func (rc *ResultCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (rc *ResultCache) Close() error {
	return rc.client.Close()
}

// Set stores a value in the cache with expiration.
func (rc *ResultCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		rc.logger.Errorf("Failed to marshal cache value for key %s: %v", key, err)
		metrics.CacheErrors.WithLabelValues("redis", "marshal").Inc()
		return err
	}

	// Size limit to prevent excessive memory usage
	const maxSize = 1 * 1024 * 1024 // 1MB
	if len(data) > maxSize {
		rc.logger.Warnf("Cache value for key %s exceeds size limit (%d bytes > %d bytes), rejecting", key, len(data), maxSize)
		metrics.CacheErrors.WithLabelValues("redis", "size_limit").Inc()
		return fmt.Errorf("cache value size %d bytes exceeds maximum allowed size %d bytes", len(data), maxSize)
	}

	err = rc.client.Set(ctx, key, data, expiration).Err()
	if err != nil {
		metrics.CacheErrors.WithLabelValues("redis", "set").Inc()
	}
	return err
}

// Get retrieves a value from the cache. The bool return reports whether the
// key was present.
func (rc *ResultCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := rc.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			metrics.CacheMisses.WithLabelValues("redis").Inc()
			return false, nil
		}
		rc.logger.Errorf("Failed to get cache value for key %s: %v", key, err)
		metrics.CacheErrors.WithLabelValues("redis", "get").Inc()
		return false, err
	}

	err = json.Unmarshal([]byte(data), dest)
	if err != nil {
		rc.logger.Errorf("Failed to unmarshal cache value for key %s: %v", key, err)
		metrics.CacheErrors.WithLabelValues("redis", "unmarshal").Inc()
		return false, err
	}

	metrics.CacheHits.WithLabelValues("redis").Inc()
	return true, nil
}

// Delete removes a key from the cache.
func (rc *ResultCache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, key).Err()
}

// Exists checks if a key exists in the cache.
func (rc *ResultCache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := rc.client.Exists(ctx, key).Result()
	return count > 0, err
}

// Cache key prefixes for the data types the cache holds.
const (
	CacheKeyResultPrefix    = "result:"
	CacheKeyIndicatorPrefix = "indicator:"
	CacheKeyStatsPrefix     = "stats:"
)

// GetResultCacheKey generates a cache key for a detection result by indicator ID.
func GetResultCacheKey(indicatorID string) string {
	return CacheKeyResultPrefix + indicatorID
}

// GetIndicatorCacheKey generates a cache key for an indicator.
func GetIndicatorCacheKey(indicatorID string) string {
	return CacheKeyIndicatorPrefix + indicatorID
}

// GetStatsCacheKey generates a cache key for engine statistics snapshots.
func GetStatsCacheKey(statsKey string) string {
	return CacheKeyStatsPrefix + statsKey
}
