package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache stores JSON-encoded values in Redis under a common prefix.
// Entries are evicted by TTL; Delete removes them early.
type Cache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

func New(rdb *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Cache) key(k string) string {
	return c.prefix + ":" + k
}

// Get decodes the value stored at k into dest.
func (c *Cache) Get(ctx context.Context, k string, dest any) error {
	raw, err := c.rdb.Get(ctx, c.key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", k, err)
	}
	return json.Unmarshal(raw, dest)
}

// Set stores value at k for the cache TTL.
func (c *Cache) Set(ctx context.Context, k string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", k, err)
	}
	return c.rdb.Set(ctx, c.key(k), raw, c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, k string) error {
	return c.rdb.Del(ctx, c.key(k)).Err()
}

// GetOrLoad returns the cached value at k, calling load on a miss.
// Concurrent misses for the same key share a single load. A Redis outage
// degrades to calling load directly.
func GetOrLoad[T any](ctx context.Context, c *Cache, k string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	err := c.Get(ctx, k, &cached)
	if err == nil {
		return cached, nil
	}

	v, err, _ := c.group.Do(k, func() (any, error) {
		fresh, err := load(ctx)
		if err != nil {
			return fresh, err
		}
		// best effort, the caller still gets the fresh value
		_ = c.Set(ctx, k, fresh)
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
