package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/raidstats/raid-chat/internal/pkg/hash"
)

// RedisStore is a Redis-backed cache for deployments sharing cached
// queries across processes. Staleness is delegated to Redis TTLs, so
// Maintain is a no-op. Redis failures degrade to cache misses.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisStore creates a Redis-backed cache.
// Returns an error if the connection cannot be established.
func NewRedisStore(name, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	return &RedisStore{
		client: client,
		prefix: "raidchat:cache:" + name + ":",
		ttl:    ttl,
	}, nil
}

// Get returns the cached value for the input text. Any Redis error is
// reported as a miss.
func (r *RedisStore) Get(ctx context.Context, text string) (string, bool) {
	key := r.prefix + hash.QuestionKey(text)

	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		r.misses.Add(1)
		return "", false
	}

	// Refresh TTL on access so hot entries stay warm.
	r.client.Expire(ctx, key, r.ttl)
	r.hits.Add(1)
	return value, true
}

// Set stores a value for the input text with the configured TTL.
// Errors are swallowed; a failed write just means a future miss.
func (r *RedisStore) Set(ctx context.Context, text, value string) {
	key := r.prefix + hash.QuestionKey(text)
	_ = r.client.Set(ctx, key, value, r.ttl).Err()
}

// Stats returns current cache statistics. Size and memory usage are not
// tracked per-prefix in Redis and report zero.
func (r *RedisStore) Stats() Stats {
	hits := r.hits.Load()
	misses := r.misses.Load()
	total := hits + misses
	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}

	return Stats{
		Hits:    hits,
		Misses:  misses,
		HitRate: rate,
	}
}

// Maintain is a no-op; Redis expires entries via TTL.
func (r *RedisStore) Maintain() {}

// Clear removes all entries under this cache's prefix.
func (r *RedisStore) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		r.client.Del(ctx, iter.Val())
	}
}

// Close releases the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
