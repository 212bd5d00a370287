package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

// responseCache is the TTL + revalidation layer over the cache store port.
// Entries are shared read-only across callers, so every key must embed the
// authorization-scoping fields (participant, consent, resource, query shape)
// to rule out cross-tenant leakage. Expired entries are misses; there is no
// stale-while-revalidate.
type responseCache struct {
	store  ports.CacheStore
	ttl    time.Duration
	logger *slog.Logger
}

func newResponseCache(store ports.CacheStore, ttl time.Duration, logger *slog.Logger) *responseCache {
	return &responseCache{store: store, ttl: ttl, logger: logger}
}

// Get returns the cached value and its content-derived revalidation tag.
// Store failures degrade to a miss; the read path recomputes from source.
func (c *responseCache) Get(ctx context.Context, key string) (value []byte, tag string, hit bool) {
	if c.store == nil {
		return nil, "", false
	}
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "cache read failed",
			"module", "cache", "operation", "get", "outcome", "miss",
			"cache_key", key, "error", err)
		return nil, "", false
	}
	if !ok {
		return nil, "", false
	}
	return raw, RevalidationTag(raw), true
}

// Put stores the computed value and returns its revalidation tag.
func (c *responseCache) Put(ctx context.Context, key string, value []byte) string {
	if c.store != nil {
		if err := c.store.Put(ctx, key, value, c.ttl); err != nil {
			c.logger.WarnContext(ctx, "cache write failed",
				"module", "cache", "operation", "put", "outcome", "failure",
				"cache_key", key, "error", err)
		}
	}
	return RevalidationTag(value)
}

// RevalidationTag derives the quoted ETag form from value content.
func RevalidationTag(value []byte) string {
	sum := sha256.Sum256(value)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
