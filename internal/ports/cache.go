package ports

import (
	"context"
	"time"
)

// Cache is a TTL key-value store. Get reports a miss with ok=false and a nil
// error. GetMany returns one slot per key, empty for misses. DeleteIfValue
// removes key only while it still holds value.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	GetMany(ctx context.Context, keys []string) ([]CacheValue, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	SetMany(ctx context.Context, entries map[string]string, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	DeleteIfValue(ctx context.Context, key, value string) (bool, error)
}

type CacheValue struct {
	Value string
	Found bool
}
