package limits

import (
	"sync"
	"time"

	"github.com/GrainHologram/SnipeScheduler-sub001/internal/clock"
)

// groupCache is a read-through TTL cache for group memberships. Staleness of
// at most the TTL is tolerated for limit computation; capacity decisions at
// commit time never go through it.
type groupCache struct {
	clock clock.Clock
	ttl   time.Duration

	mu      sync.Mutex
	entries map[int64]groupCacheEntry
}

type groupCacheEntry struct {
	ids       []int64
	fetchedAt time.Time
}

func newGroupCache(clk clock.Clock, ttl time.Duration) *groupCache {
	return &groupCache{
		clock:   clk,
		ttl:     ttl,
		entries: make(map[int64]groupCacheEntry),
	}
}

func (c *groupCache) get(userID int64) ([]int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[userID]
	if !ok {
		return nil, false
	}
	if c.clock.Now().Sub(entry.fetchedAt) > c.ttl {
		delete(c.entries, userID)
		return nil, false
	}
	return entry.ids, true
}

func (c *groupCache) set(userID int64, ids []int64) {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if now.Sub(entry.fetchedAt) > c.ttl {
			delete(c.entries, key)
		}
	}
	c.entries[userID] = groupCacheEntry{ids: ids, fetchedAt: now}
}

func (c *groupCache) invalidate(userID int64) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}
