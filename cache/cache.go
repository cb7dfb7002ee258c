// Package cache memoizes query results keyed by the query's canonical
// form, evicting least-recently-used entries past capacity.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/samber/mo"

	"flatdb/record"
)

// DefaultSize is used when a non-positive capacity is requested.
const DefaultSize = 100

type Cache struct {
	entries *lru.Cache
	maxSize int
	enabled bool
	hits    int
	misses  int
}

func New(maxSize int, enabled bool) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultSize
	}
	entries, err := lru.New(maxSize)
	if err != nil {
		panic(err.Error()) // only errors on size <= 0
	}
	return &Cache{entries: entries, maxSize: maxSize, enabled: enabled}
}

// Get probes for a cached result. A disabled cache is always absent and
// counts nothing. A hit promotes the entry to most recently used.
func (c *Cache) Get(q record.Query) mo.Option[[]*record.Record] {
	if !c.enabled {
		return mo.None[[]*record.Record]()
	}
	v, ok := c.entries.Get(q.Canonical())
	if !ok {
		c.misses++
		return mo.None[[]*record.Record]()
	}
	c.hits++
	return mo.Some(v.([]*record.Record))
}

// Set stores a copy of the result slice under the normalized key, as the
// most recently used entry. The records themselves stay shared with the
// caller's list. No-op while disabled.
func (c *Cache) Set(q record.Query, result []*record.Record) {
	if !c.enabled {
		return
	}
	cp := make([]*record.Record, len(result))
	copy(cp, result)
	c.entries.Add(q.Canonical(), cp)
}

// Invalidate drops every entry. Hit/miss counters are kept: invalidation
// happens on every mutation and resetting them would hide real hit rates.
func (c *Cache) Invalidate() {
	c.entries.Purge()
}

// Clear is an alias for Invalidate.
func (c *Cache) Clear() { c.Invalidate() }

func (c *Cache) Enable() { c.enabled = true }

// Disable turns caching off and drops all entries, so a disabled cache
// never holds anything stale.
func (c *Cache) Disable() {
	c.enabled = false
	c.entries.Purge()
}

func (c *Cache) Enabled() bool { return c.enabled }

// ResetStats zeroes the hit/miss counters.
func (c *Cache) ResetStats() {
	c.hits = 0
	c.misses = 0
}

// Stats describes cache state and accounting. HitRate is a percentage,
// zero when the cache was never probed.
type Stats struct {
	Enabled bool
	Size    int
	MaxSize int
	Hits    int
	Misses  int
	HitRate float64
}

func (s Stats) String() string {
	return fmt.Sprintf("enabled=%t size=%d/%d hits=%d misses=%d rate=%.2f%%",
		s.Enabled, s.Size, s.MaxSize, s.Hits, s.Misses, s.HitRate)
}

func (c *Cache) Stats() Stats {
	s := Stats{
		Enabled: c.enabled,
		Size:    c.entries.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total) * 100
	}
	return s
}
