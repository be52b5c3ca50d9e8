package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss reports an absent key. Callers treat it as a miss, not a
// failure.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache is a generic key-value provider. The identity service uses it
// as a best-effort accelerator: implementations may fail and callers
// must keep working.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
