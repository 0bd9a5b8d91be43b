// internal/pkg/kv/kv.go
package kv

import (
	"context"
	"time"
)

// Store is a durable key-value store with per-key TTL. Session records and
// attempt records are the only residents; both are written as single keys so
// readers never observe partial state.
type Store interface {
	// Get returns the value for key, or xerrors.ErrNotFound when absent
	// or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error
}
