package cache

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// A nil cache must be a no-op on every operation so callers can wire it
// unconditionally whether or not Redis is configured.
func TestNilCacheIsInert(t *testing.T) {
	ctx := context.Background()
	var c *ListCache

	payload, ok := c.Get(ctx, "00123")
	assert.False(t, ok)
	assert.Nil(t, payload)

	c.Set(ctx, "00123", []byte(`{}`))
	c.Invalidate(ctx, "00123")
}

func TestNewListCacheWithoutClient(t *testing.T) {
	c := NewListCache(nil, 30*time.Second, slog.Default())
	assert.Nil(t, c)
}
