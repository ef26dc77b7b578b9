// Package store provides the key-value cache used for external API
// responses: an in-memory default and a Redis backend for multi-instance
// deployments.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("store: key not found")

// Store is a byte-oriented cache with per-key TTLs. Values are advisory:
// every caller must tolerate a miss and go back to the source of truth.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
