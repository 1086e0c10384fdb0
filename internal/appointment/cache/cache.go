// Package cache provides the optional Redis read cache for the listing query.
//
// The list projection is the only hot read path; everything else is keyed
// point lookups. Caching is best-effort: a Redis outage degrades to direct
// store reads, never to request failures.
package cache

import (
	"context"
	"log/slog"
	"time"

	platformredis "citamed/internal/platform/redis"
)

const keyPrefix = "citamed:appointments:insured:"

// ListCache caches serialized list responses per insured id. A nil *ListCache
// is valid and disables caching.
type ListCache struct {
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewListCache builds a cache over the shared Redis client. Returns nil when
// Redis is not configured so callers can wire it unconditionally.
func NewListCache(client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *ListCache {
	if client == nil {
		return nil
	}
	return &ListCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached payload for an insured id, if present.
func (c *ListCache) Get(ctx context.Context, insuredID string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, keyPrefix+insuredID).Bytes()
	if err != nil {
		return nil, false
	}
	return payload, true
}

// Set stores the payload with the configured TTL. Errors are logged and
// swallowed.
func (c *ListCache) Set(ctx context.Context, insuredID string, payload []byte) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+insuredID, payload, c.ttl).Err(); err != nil {
		c.logger.DebugContext(ctx, "list cache set failed", "insured_id", insuredID, "error", err)
	}
}

// Invalidate drops the cached entry after a write touching the insured's
// appointments.
func (c *ListCache) Invalidate(ctx context.Context, insuredID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, keyPrefix+insuredID).Err(); err != nil {
		c.logger.DebugContext(ctx, "list cache invalidate failed", "insured_id", insuredID, "error", err)
	}
}
