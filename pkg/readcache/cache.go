// Package readcache is a small byte-oriented cache used by the history
// reader. Values are serialized snapshots of query results; the cache is
// purely an accelerator and is never consulted for balance decisions.
package readcache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("readcache: miss")

// IsMiss reports whether err indicates a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}

// Cache stores serialized read results with a TTL.
type Cache interface {
	// Get returns the cached bytes for key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Name identifies the layer for logging and metrics.
	Name() string

	// Close releases any resources held by the cache.
	Close() error
}
