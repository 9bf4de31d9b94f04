package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/dvloznov/vaultmind/internal/domain"
)

// DefaultCacheTTL bounds how stale a cached snapshot may be.
const DefaultCacheTTL = 10 * time.Second

// Cache keeps the last loaded snapshot for a fixed time-to-live so repeated
// reads within the window do not re-parse the file. Readers accept up to
// ttl of staleness instead of coordinating with writers.
type Cache struct {
	loader Loader
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	snapshot domain.Ledger
	loadedAt time.Time
	valid    bool
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache wraps loader. A non-positive ttl disables caching.
func NewCache(loader Loader, ttl time.Duration, opts ...CacheOption) *Cache {
	c := &Cache{
		loader: loader,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached snapshot if it is younger than the ttl, otherwise
// reloads. The returned ledger is a copy owned by the caller.
func (c *Cache) Get(ctx context.Context) (domain.Ledger, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.now().Sub(c.loadedAt) < c.ttl {
		return c.snapshot.Clone(), nil
	}
	return c.reloadLocked(ctx)
}

// Refresh reloads unconditionally.
func (c *Cache) Refresh(ctx context.Context) (domain.Ledger, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked(ctx)
}

// Invalidate drops the snapshot; the next Get reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.snapshot = nil
}

// Load satisfies Loader so a Cache can stand in for a Store.
func (c *Cache) Load(ctx context.Context) (domain.Ledger, error) {
	return c.Get(ctx)
}

func (c *Cache) reloadLocked(ctx context.Context) (domain.Ledger, error) {
	ledger, err := c.loader.Load(ctx)
	if err != nil {
		// Keep the previous snapshot out of circulation; a failed read must surface.
		c.valid = false
		c.snapshot = nil
		return nil, err
	}
	c.snapshot = ledger
	c.loadedAt = c.now()
	c.valid = true
	return ledger.Clone(), nil
}

var _ Loader = (*Cache)(nil)
