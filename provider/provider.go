// Package provider defines the storage abstraction behind the cache-aside layer.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key. If a store adds
// internal framing (e.g. an expiry header), it MUST be fully stripped on Get.
//
// Keys are stored verbatim. Every Set carries its own TTL and overwrites both
// the value and the remaining TTL of an existing key.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with per-entry TTLs.
// Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss or expiry.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL in a single operation. May ignore cost
	// if unsupported. Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
