// Package cache holds caching helpers: the Redis client constructor and the
// request scoped query cache shared by data loaders of a single request.
package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Query memoizes loader results for the lifetime of one request.
// Concurrent loads of the same key share one call that outlives the
// cancellation of any single caller. Failed loads are not stored.
type Query struct {
	mu      sync.RWMutex
	entries map[string]any
	group   singleflight.Group
}

// NewQuery returns an empty request cache.
func NewQuery() *Query {
	return &Query{entries: make(map[string]any)}
}

// Fetch returns the cached value for key or runs load and caches its result.
func (q *Query) Fetch(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	if v, ok := q.Get(key); ok {
		return v, nil
	}
	resultChan := q.group.DoChan(key, func() (interface{}, error) {
		if v, ok := q.Get(key); ok {
			return v, nil
		}
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		q.mu.Lock()
		q.entries[key] = v
		q.mu.Unlock()
		return v, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		return res.Val, res.Err
	}
}

// Get returns a cached value.
func (q *Query) Get(key string) (any, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	v, ok := q.entries[key]
	return v, ok
}

// Invalidate drops every entry; mutations call it so later reads refetch.
func (q *Query) Invalidate() {
	q.mu.Lock()
	q.entries = make(map[string]any)
	q.mu.Unlock()
}

// Len reports the number of cached entries.
func (q *Query) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}
