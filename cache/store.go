// Package cache provides the TTL key-value stores backing the signing key
// cache and the application token cache.
//
// Both caches only need three operations, so any backend able to hold bytes
// with an expiry can be plugged in. MemoryStore keeps entries in process and
// is the default; RedisStore shares entries between processes.
package cache

import (
	"context"
	"time"
)

// Store is an abstract key-value store with per-entry TTL.
//
// Writes are last-writer-wins. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key. The bool is false when the key
	// is absent or its TTL elapsed.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl. A ttl <= 0 stores the entry without
	// expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Resetter is implemented by stores able to drop every entry they hold.
type Resetter interface {
	Reset(ctx context.Context) error
}
