package cache

import (
	"context"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// LoadFunc produces the value of a year on a cache miss.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// YearCache is a read-through cache keyed by year. Concurrent misses on the
// same year share one load, and a load that was in flight when the cache was
// reset or invalidated does not repopulate it. Failed loads are never cached.
type YearCache[T any] struct {
	store Cache[T]
	group singleflight.Group
	gen   atomic.Uint64
}

// NewYearCache wraps store. The store owns eviction and expiry.
func NewYearCache[T any](store Cache[T]) *YearCache[T] {
	return &YearCache[T]{store: store}
}

func yearKey(year int) string {
	return strconv.Itoa(year)
}

// Get returns the cached value of year or loads it. cached reports whether
// the value came from the cache. The shared load runs detached from the
// caller's cancellation, so a caller that gives up only stops its own wait.
func (c *YearCache[T]) Get(ctx context.Context, year int, load LoadFunc[T]) (value T, cached bool, err error) {
	key := yearKey(year)
	if v, ok := c.store.Get(key); ok {
		return v, true, nil
	}

	gen := c.gen.Load()
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		v, err := load(loadCtx)
		if err != nil {
			return v, err
		}
		if c.gen.Load() == gen {
			c.store.Set(key, v)
		}
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(T), false, nil
	}
}

// Peek returns the cached value without loading.
func (c *YearCache[T]) Peek(year int) (T, bool) {
	return c.store.Get(yearKey(year))
}

// Invalidate drops one year.
func (c *YearCache[T]) Invalidate(year int) {
	c.gen.Add(1)
	c.group.Forget(yearKey(year))
	c.store.Delete(yearKey(year))
}

// Reset drops every year.
func (c *YearCache[T]) Reset() {
	c.gen.Add(1)
	c.store.Reset()
}

// Len is the number of cached years.
func (c *YearCache[T]) Len() int {
	return c.store.Size()
}
