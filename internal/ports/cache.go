package ports

import (
	"context"
	"time"
)

// CacheStore is the key/TTL byte store behind the read-path cache layer.
// Get returns (nil, false, nil) on a miss; expired entries are misses.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ConsentLocker serializes admission decisions per consent. WithConsentLock
// acquires, runs fn, and releases on every path including panics; acquisition
// timeout must surface as domain.ErrUnavailable, never a silent fall-through.
type ConsentLocker interface {
	WithConsentLock(ctx context.Context, consentID string, fn func(ctx context.Context) error) error
}
