package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-quest/internal/platform/cache"
)

// RedisCache keeps each period's full ranking as one JSON value with a TTL.
type RedisCache struct {
	store *cache.Cache
	ttl   time.Duration
}

// NewRedisCache creates a ranking cache under c's key prefix. A
// non-positive ttl disables expiry, leaving invalidation as the only
// eviction.
func NewRedisCache(c *cache.Cache, ttl time.Duration) *RedisCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{store: c, ttl: ttl}
}

func (c *RedisCache) rankingKey(p Period) string {
	return c.store.Key("leaderboard", string(p))
}

// Get returns the cached ranking for p, if any.
func (c *RedisCache) Get(ctx context.Context, p Period) ([]Entry, bool, error) {
	data, err := c.store.Client.Get(ctx, c.rankingKey(p)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached leaderboard: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("decode cached leaderboard: %w", err)
	}
	return entries, true, nil
}

// Set stores the ranking for p.
func (c *RedisCache) Set(ctx context.Context, p Period, entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	if err := c.store.Client.Set(ctx, c.rankingKey(p), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache leaderboard: %w", err)
	}
	return nil
}

// Invalidate deletes the cached ranking of every period.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	keys := make([]string, 0, len(Periods))
	for _, p := range Periods {
		keys = append(keys, c.rankingKey(p))
	}
	if err := c.store.Client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate leaderboard cache: %w", err)
	}
	return nil
}
