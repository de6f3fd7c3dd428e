// Package cache implements the cache-or-fetch layer in front of upstream
// APIs. Payloads are stored as opaque JSON under a (data type, entity)
// key and served until they go stale; backend failures degrade to a
// direct fetch rather than an error.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/web3-frozen/tokenflow/internal/metrics"
)

// DefaultTTL is how long a cached payload stays fresh.
const DefaultTTL = 6 * time.Hour

// Key identifies one cached payload.
type Key struct {
	DataType string
	Entity   string
}

func (k Key) String() string {
	return k.DataType + ":" + k.Entity
}

// Entry is a stored payload with its fetch time.
type Entry struct {
	Payload   []byte
	FetchedAt time.Time
}

// Store is a cache backend. Get returns (nil, nil) on a miss.
type Store interface {
	Get(ctx context.Context, key Key) (*Entry, error)
	Put(ctx context.Context, key Key, payload []byte, fetchedAt time.Time) error
}

// FetchFunc produces a fresh payload when the cache cannot serve one.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Result is the outcome of a GetOrFetch call.
type Result struct {
	Payload   []byte
	Hit       bool
	FetchedAt time.Time
}

// Cache wraps a Store with TTL freshness checks.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func New(store Store, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// TTL returns the configured freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// GetOrFetch serves the cached payload when it is younger than the TTL,
// otherwise calls fetch and stores the result. A failed fetch is never
// cached. Backend errors on read or write are logged and counted but do
// not fail the call as long as the fetch itself succeeds.
func (c *Cache) GetOrFetch(ctx context.Context, key Key, fetch FetchFunc) (*Result, error) {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed, falling back to fetch",
			"key", key.String(), "error", err)
		metrics.CacheStoreErrorsTotal.WithLabelValues("get").Inc()
		entry = nil
	}

	if entry != nil {
		age := c.now().Sub(entry.FetchedAt)
		if age < c.ttl {
			metrics.CacheHitsTotal.WithLabelValues(key.DataType).Inc()
			metrics.CacheEntryAge.WithLabelValues(key.DataType).Set(age.Seconds())
			return &Result{Payload: entry.Payload, Hit: true, FetchedAt: entry.FetchedAt}, nil
		}
	}
	metrics.CacheMissesTotal.WithLabelValues(key.DataType).Inc()

	payload, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}

	fetchedAt := c.now()
	if err := c.store.Put(ctx, key, payload, fetchedAt); err != nil {
		c.logger.Warn("cache write failed, serving uncached result",
			"key", key.String(), "error", err)
		metrics.CacheStoreErrorsTotal.WithLabelValues("put").Inc()
	}
	return &Result{Payload: payload, Hit: false, FetchedAt: fetchedAt}, nil
}
