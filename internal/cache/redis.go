// Package cache provides a Redis-backed cache for ranking views. The cache is
// strictly advisory: a miss or a Redis outage falls back to a full rebuild
// from the match store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"matchrank/internal/metrics"
)

// Config holds Redis connection settings.
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RedisCache stores serialized ranking views under per-algorithm keys.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(cfg Config, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func rankingsKey(algorithm, league string) string {
	return fmt.Sprintf("rankings:%s:%s", algorithm, league)
}

// SetRankings caches a serialized ranking view. Failures are logged and
// swallowed; the cache never blocks a rebuild from completing.
func (c *RedisCache) SetRankings(ctx context.Context, algorithm, league string, rows interface{}) {
	data, err := json.Marshal(rows)
	if err != nil {
		log.Error().Err(err).Str("algorithm", algorithm).Msg("Failed to encode rankings for cache")
		return
	}

	key := rankingsKey(algorithm, league)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache rankings")
		return
	}
	log.Debug().Str("key", key).Int("bytes", len(data)).Msg("Rankings cached")
}

// GetRankings loads a cached ranking view into dest. Returns false on a miss
// or any cache error.
func (c *RedisCache) GetRankings(ctx context.Context, algorithm, league string, dest interface{}) bool {
	key := rankingsKey(algorithm, league)
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.RecordCacheMiss()
		return false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Rankings cache read failed")
		metrics.RecordCacheMiss()
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Rankings cache entry undecodable")
		metrics.RecordCacheMiss()
		return false
	}
	metrics.RecordCacheHit()
	return true
}

// InvalidateLeague drops both algorithm views for a league. Called after a
// rebuild so readers never see rankings older than the latest replay.
func (c *RedisCache) InvalidateLeague(ctx context.Context, league string) {
	keys := []string{
		rankingsKey("elo", league),
		rankingsKey("skill", league),
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Str("league", league).Msg("Failed to invalidate cached rankings")
	}
}

// Health verifies the Redis connection.
func (c *RedisCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
