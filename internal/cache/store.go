package cache

import "context"

// Store is a TTL-bounded key/value cache. Implementations treat stale entries
// as absent on read (lazy expiry) and overwrite unconditionally on Set.
//
// Stored values are immutable by contract: callers must not modify a value
// after handing it to Set or after receiving it from Get. Implementations
// may return the backing value without copying.
//
// Two concurrent requests for the same expired or absent key are not
// deduplicated: both may recompute and one overwrite wins. Recomputation is
// idempotent, so the race only costs an extra upstream call.
type Store[T any] interface {
	Get(ctx context.Context, key string) (T, bool, error)
	Set(ctx context.Context, key string, v T) error
}
