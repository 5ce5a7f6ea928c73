package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-chain/eventcore/pkg/event"
	"github.com/meridian-chain/eventcore/pkg/hash"
)

// DedupeCache remembers recently collected event identities so the pipeline
// can turn the engine's at-least-once feed into effectively-once delivery
// downstream.
type DedupeCache interface {
	// Seen reports whether the identity was already collected.
	Seen(ctx context.Context, id event.ID) (bool, error)
	// Mark records the identity for the cache's retention window.
	Mark(ctx context.Context, id event.ID) error
}

// MemoryDedupe implements an in-memory dedupe cache with TTL.
type MemoryDedupe struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[[hash.Size]byte]time.Time
}

// NewMemoryDedupe creates an in-memory dedupe cache. TTL bounds how long an
// identity is remembered.
func NewMemoryDedupe(ttl time.Duration) *MemoryDedupe {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryDedupe{
		ttl:   ttl,
		items: make(map[[hash.Size]byte]time.Time),
	}
}

// Seen reports whether the identity is in the cache and not expired.
func (c *MemoryDedupe) Seen(ctx context.Context, id event.ID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt, ok := c.items[id.PreHashedBytes()]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiresAt) {
		delete(c.items, id.PreHashedBytes())
		return false, nil
	}
	return true, nil
}

// Mark records the identity until the TTL elapses.
func (c *MemoryDedupe) Mark(ctx context.Context, id event.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id.PreHashedBytes()] = time.Now().Add(c.ttl)
	return nil
}

// redisKeyPrefix namespaces dedupe entries in a shared Redis.
const redisKeyPrefix = "sce:seen:"

// RedisDedupe implements a Redis-backed dedupe cache shared across node
// restarts and replicas.
type RedisDedupe struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDedupe wraps an existing Redis client as a dedupe cache.
func NewRedisDedupe(client *redis.Client, ttl time.Duration) *RedisDedupe {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDedupe{client: client, ttl: ttl}
}

// Seen reports whether the identity key exists in Redis.
func (c *RedisDedupe) Seen(ctx context.Context, id event.ID) (bool, error) {
	n, err := c.client.Exists(ctx, redisKeyPrefix+id.String()).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records the identity with the configured TTL.
func (c *RedisDedupe) Mark(ctx context.Context, id event.ID) error {
	return c.client.Set(ctx, redisKeyPrefix+id.String(), "1", c.ttl).Err()
}

// Close closes the underlying Redis connection.
func (c *RedisDedupe) Close() error {
	return c.client.Close()
}
