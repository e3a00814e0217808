// Package cache stores solve results and other byte payloads behind a small
// key/value interface.
//
// Three backends are provided: [FileCache] for the CLI (one JSON file per
// entry under the XDG cache directory), [RedisCache] for the HTTP server,
// and [NullCache] when caching is disabled. Keys are produced by a [Keyer]
// so every backend sees the same key layout.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values.
const (
	// TTLSolve is how long a finished solve stays cached. Solves are
	// deterministic for a given problem and options, so entries only age
	// out to bound disk usage.
	TTLSolve = 7 * 24 * time.Hour

	// TTLRender is how long rendered artifacts (SVG, PNG) stay cached.
	TTLRender = 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiry.
//
// Get reports a miss with ok == false and a nil error. A zero ttl in Set
// means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
