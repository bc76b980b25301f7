// Package cache provides the shared concurrent cache the unwrap engine and
// the dispatch dedupe sit on, with in-memory and Redis backends.
package cache

import (
	"context"
	"time"
)

// Backend defines the interface for cache implementations.
//
// SetNX is the write-once primitive: the first writer wins and later writers
// are no-ops, which is what the unwrap cache and the dispatched-once dedupe
// rely on. Recomputing and re-inserting the same value is harmless.
type Backend interface {
	// Get retrieves a value from the cache.
	// Returns (value, found, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value in the cache with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores a value only when the key is absent. Returns true when
	// this call performed the write.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Close closes the cache connection.
	Close() error
}
