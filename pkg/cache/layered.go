package cache

import (
	"context"
	"io"
	"time"
)

// LayeredCache implements a two-level cache. L1 is normally a MemoryCache
// in front of a shared Redis L2; locks always go to L2.
type LayeredCache struct {
	l1    Service
	l2    Service
	l1TTL time.Duration
}

var _ Service = (*LayeredCache)(nil)

func NewLayeredCache(l1, l2 Service, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{L1TTL: 30 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}
	return &LayeredCache{l1: l1, l2: l2, l1TTL: cfg.L1TTL}
}

// Set writes through: L2 first, then L1.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.l2.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, value, lc.ttlFor(expiration))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.l1.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.l2.Get(ctx, key, dest); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, dest, lc.l1TTL)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.l2.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.l2.Unlock(ctx, key)
}

// Close closes both layers when they support it.
func (lc *LayeredCache) Close() error {
	if c, ok := lc.l1.(io.Closer); ok {
		_ = c.Close()
	}
	if c, ok := lc.l2.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (lc *LayeredCache) ttlFor(expiration time.Duration) time.Duration {
	if expiration > 0 && expiration < lc.l1TTL {
		return expiration
	}
	return lc.l1TTL
}
