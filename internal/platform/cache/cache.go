// Package cache provides a Dragonfly/Redis client wrapper.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-quest/internal/platform/config"
)

// DefaultKeyPrefix namespaces keys when no prefix is configured.
const DefaultKeyPrefix = "quest"

// Cache wraps a Redis/Dragonfly client and the namespace its keys live in.
// Replicas sharing a prefix share cached data.
type Cache struct {
	Client *redis.Client
	Prefix string
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects to the cache described by cc and pings it.
func New(ctx context.Context, cc config.CacheConfig) (*Cache, error) {
	opts, err := ParseURL(cc.URL)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	if cc.PoolSize > 0 {
		opts.PoolSize = cc.PoolSize
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging cache at %s: %w", opts.Addr, err)
	}

	return Wrap(client, cc.KeyPrefix), nil
}

// Wrap uses an existing client. An empty prefix means DefaultKeyPrefix.
func Wrap(client *redis.Client, prefix string) *Cache {
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Cache{Client: client, Prefix: prefix}
}

// Key joins parts under the cache's prefix, e.g. Key("leaderboard",
// "weekly") is "quest:leaderboard:weekly" with the default prefix.
func (c *Cache) Key(parts ...string) string {
	return c.Prefix + ":" + strings.Join(parts, ":")
}

// Close shuts down the cache client.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck verifies the cache connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
