// Package rediscache stores intensity exploration results in Redis so every
// process behind a load balancer shares one memo table.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/internal/config"
	"github.com/jakechorley/shift-optimizer/pkg/core/intensity"
)

// Commands is the subset of redis.Cmdable used by the cache
type Commands interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HLen(ctx context.Context, key string) *redis.IntCmd
	HKeys(ctx context.Context, key string) *redis.StringSliceCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cache implements intensity.Cache on a Redis hash. Entries never expire.
type Cache struct {
	rdb    Commands
	prefix string
	logger *zap.Logger
}

var _ intensity.Cache = (*Cache)(nil)

// Connect dials Redis and checks it answers before returning a cache
func Connect(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Cache, *redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if logger != nil {
		logger.Info("Connected to Redis", zap.String("addr", cfg.Addr))
	}
	return New(rdb, cfg.Prefix, logger), rdb, nil
}

// New creates a cache using keys under prefix
func New(rdb Commands, prefix string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{rdb: rdb, prefix: prefix, logger: logger}
}

func (c *Cache) entriesKey() string { return c.prefix + "entries" }
func (c *Cache) hitsKey() string    { return c.prefix + "hits" }
func (c *Cache) missesKey() string  { return c.prefix + "misses" }

func (c *Cache) Get(ctx context.Context, key string) (intensity.Result, bool, error) {
	raw, err := c.rdb.HGet(ctx, c.entriesKey(), key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.count(ctx, c.missesKey())
		return intensity.Result{}, false, nil
	}
	if err != nil {
		return intensity.Result{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var result intensity.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return intensity.Result{}, false, fmt.Errorf("failed to decode cache entry %q: %w", key, err)
	}

	c.count(ctx, c.hitsKey())
	return result, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, result intensity.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.rdb.HSet(ctx, c.entriesKey(), key, raw).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (c *Cache) Clear(ctx context.Context) error {
	if err := c.rdb.Del(ctx, c.entriesKey(), c.hitsKey(), c.missesKey()).Err(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (c *Cache) Stats(ctx context.Context) (intensity.Stats, error) {
	size, err := c.rdb.HLen(ctx, c.entriesKey()).Result()
	if err != nil {
		return intensity.Stats{}, fmt.Errorf("failed to count cache entries: %w", err)
	}
	keys, err := c.rdb.HKeys(ctx, c.entriesKey()).Result()
	if err != nil {
		return intensity.Stats{}, fmt.Errorf("failed to list cache keys: %w", err)
	}
	sort.Strings(keys)

	hits, err := c.counter(ctx, c.hitsKey())
	if err != nil {
		return intensity.Stats{}, err
	}
	misses, err := c.counter(ctx, c.missesKey())
	if err != nil {
		return intensity.Stats{}, err
	}

	return intensity.Stats{
		Size:   int(size),
		Keys:   keys,
		Hits:   hits,
		Misses: misses,
	}, nil
}

// count bumps a statistics counter. Failures only cost accuracy of Stats.
func (c *Cache) count(ctx context.Context, key string) {
	if err := c.rdb.Incr(ctx, key).Err(); err != nil {
		c.logger.Warn("Failed to update cache counter", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) counter(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", key, err)
	}
	return n, nil
}
