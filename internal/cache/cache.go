// Package cache holds recently probed expiry dates so repeated scrapes of the
// same domain do not hit WHOIS servers more than once per TTL.
package cache

import (
	"context"
	"domainprobe/pkg/logger"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry is a cached expiry date and the moment it was stored. Entries are
// replaced wholesale, never mutated.
type Entry struct {
	Expiry     time.Time
	InsertedAt time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now as the cache's notion of the current instant.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache maps domain names to their last known expiry date. Entries older than
// the TTL are treated as absent on read but are not purged; a later Set for the
// same domain replaces them. All methods are safe for concurrent use.
type Cache struct {
	// ttl is the maximum age of an entry that Get still returns.
	ttl time.Duration
	// now returns the current instant; time.Now outside tests.
	now func() time.Time
	// mu guards entries for the duration of a single Get, Set or Len call.
	mu      sync.Mutex
	entries map[string]Entry
}

// New constructs an empty Cache whose entries stay fresh for ttl.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the entry for domain if one exists and is younger than the TTL.
func (c *Cache) Get(ctx context.Context, domain string) (Entry, bool) {
	c.mu.Lock()
	entry, ok := c.entries[domain]
	now := c.now()
	c.mu.Unlock()

	if !ok {
		return Entry{}, false
	}
	if age := now.Sub(entry.InsertedAt); age >= c.ttl {
		logger.Debug(ctx, "cache entry expired", zap.String("domain", domain), zap.Duration("age", age))

		return Entry{}, false
	}

	logger.Debug(ctx, "cache hit", zap.String("domain", domain), zap.Time("expiry", entry.Expiry))

	return entry, true
}

// Set stores expiry for domain, replacing any previous entry. The cache does
// not judge the value; callers decide what is worth caching.
func (c *Cache) Set(ctx context.Context, domain string, expiry time.Time) {
	c.mu.Lock()
	c.entries[domain] = Entry{Expiry: expiry, InsertedAt: c.now()}
	c.mu.Unlock()

	logger.Info(ctx, "cache updated", zap.String("domain", domain), zap.Time("expiry", expiry))
}

// Len returns the number of stored entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
