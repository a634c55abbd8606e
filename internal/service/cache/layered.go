package cache

import (
	"context"
	"time"
)

// LayeredCache puts an in-process cache (L1) in front of a shared one (L2, usually Redis).
type LayeredCache struct {
	mem    *TTLCache
	shared BytesCache
	// promoteTTL bounds how long an L2 hit stays in memory; its remaining L2 lifetime is unknown.
	promoteTTL time.Duration
}

// LayeredOption configures LayeredCache.
type LayeredOption func(*LayeredCache)

// WithPromoteTTL sets the memory lifetime of values read from L2.
func WithPromoteTTL(d time.Duration) LayeredOption {
	return func(c *LayeredCache) { c.promoteTTL = d }
}

// NewLayeredCache creates a layered cache over shared.
func NewLayeredCache(shared BytesCache, opts ...LayeredOption) *LayeredCache {
	c := &LayeredCache{mem: NewTTLCache(), shared: shared, promoteTTL: 10 * time.Minute}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *LayeredCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, _ := c.mem.GetBytes(ctx, key); ok {
		return b, true, nil
	}
	b, ok, err := c.shared.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = c.mem.SetBytes(ctx, key, b, c.promoteTTL)
	return b, true, nil
}

// SetBytes writes through: L2 first, then memory.
func (c *LayeredCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.shared.SetBytes(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.mem.SetBytes(ctx, key, value, ttl)
}
