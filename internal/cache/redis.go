package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"globus_tours/internal/adapters/observability"
)

// Redis is a Store backed by a shared redis instance, for running several
// API replicas against one cache. Expiry is delegated to redis TTLs.
type Redis[T any] struct {
	c    *redis.Client
	ttl  time.Duration
	name string
}

func NewRedis[T any](name string, client *redis.Client, ttl time.Duration) *Redis[T] {
	return &Redis[T]{c: client, ttl: ttl, name: name}
}

// NewRedisClient dials a redis server with the usual options.
func NewRedisClient(addr, pass string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

func (r *Redis[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	b, err := r.c.Get(ctx, r.name+":"+key).Bytes()
	if err == redis.Nil {
		observability.ObserveCache(r.name, "miss")
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("redis get: %w", err)
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return zero, false, fmt.Errorf("redis get decode: %w", err)
	}
	observability.ObserveCache(r.name, "hit")
	return v, true, nil
}

func (r *Redis[T]) Set(ctx context.Context, key string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis set encode: %w", err)
	}
	observability.ObserveCache(r.name, "set")
	return r.c.Set(ctx, r.name+":"+key, b, r.ttl).Err()
}
