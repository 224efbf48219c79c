// Package cache defines the byte-oriented cache port used for store
// summaries.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not present.
var ErrCacheMiss = errors.New("cache: key not found")

// Repository is a minimal get/set/delete cache.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
