package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/symptom-kbs-mcp-server/internal/domain"
)

const redisKeyPrefix = "kbs:"

// RedisCache shares diagnosis results between server instances.
type RedisCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

type cachedResults struct {
	Results  []domain.InferenceResult `json:"results"`
	CachedAt time.Time                `json:"cached_at"`
}

// NewRedisCache connects to the Redis instance named in config.
func NewRedisCache(config domain.CacheConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		redis:      client,
		defaultTTL: config.DefaultTTL,
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]domain.InferenceResult, bool, error) {
	val, err := c.redis.Get(ctx, redisKeyPrefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached results: %w", err)
	}

	var cached cachedResults
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, redisKeyPrefix+key)
		return nil, false, nil
	}
	return cached.Results, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, results []domain.InferenceResult) error {
	data, err := json.Marshal(cachedResults{Results: results, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal cached results: %w", err)
	}
	return c.redis.Set(ctx, redisKeyPrefix+key, data, c.defaultTTL).Err()
}

// Purge deletes every key this cache owns.
func (c *RedisCache) Purge(ctx context.Context) error {
	iter := c.redis.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

func (c *RedisCache) Close() error {
	return c.redis.Close()
}
