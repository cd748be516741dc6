package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// CacheService defines the interface for a distributed cache system
type CacheService interface {
	// Get unmarshals the stored value into dest.
	Get(ctx context.Context, key string, dest any) error

	// Set marshals value and stores it with a TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error
}
