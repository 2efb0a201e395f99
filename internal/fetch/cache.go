package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/outreach-agent/internal/logging"
	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long a fetched page stays cached.
const DefaultCacheTTL = 24 * time.Hour

// RedisCache decorates a Fetcher with a Redis-backed page cache.
// Only successful (HTTP 200) results are cached. Cache errors never fail a fetch.
type RedisCache struct {
	client *redis.Client
	next   Fetcher
	prefix string
	ttl    time.Duration
	logger logging.Logger
}

// RedisCacheOptions configures a RedisCache.
type RedisCacheOptions struct {
	Prefix string        // Key prefix, default "outreach:page:"
	TTL    time.Duration // default DefaultCacheTTL
	Logger logging.Logger
}

// NewRedisCache wraps next with a cache stored in client.
func NewRedisCache(client *redis.Client, next Fetcher, opts RedisCacheOptions) *RedisCache {
	if opts.Prefix == "" {
		opts.Prefix = "outreach:page:"
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &RedisCache{
		client: client,
		next:   next,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		logger: opts.Logger,
	}
}

// NewRedisClient builds a client from a redis:// URL.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (c *RedisCache) key(urlStr string) string {
	sum := sha256.Sum256([]byte(urlStr))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Fetch implements Fetcher.
func (c *RedisCache) Fetch(ctx context.Context, urlStr string) (*Result, error) {
	key := c.key(urlStr)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached Result
		if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
			c.logger.Debug("[Cache] hit %s", urlStr)
			return &cached, nil
		}
		c.logger.Warn("[Cache] dropping corrupt entry for %s", urlStr)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("[Cache] lookup failed for %s: %v", urlStr, err)
	}

	result, err := c.next.Fetch(ctx, urlStr)
	if err != nil {
		return result, err
	}

	if result.StatusCode == 200 {
		if encoded, encErr := json.Marshal(result); encErr == nil {
			if setErr := c.client.Set(ctx, key, encoded, c.ttl).Err(); setErr != nil {
				c.logger.Warn("[Cache] store failed for %s: %v", urlStr, setErr)
			}
		}
	}
	return result, nil
}

// Invalidate removes a cached page.
func (c *RedisCache) Invalidate(ctx context.Context, urlStr string) error {
	return c.client.Del(ctx, c.key(urlStr)).Err()
}
