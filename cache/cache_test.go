package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatdb/record"
)

func result(id int64) []*record.Record {
	return []*record.Record{record.FromPairs(record.F("id", record.Int(id)))}
}

func TestHitAfterSetWithReorderedFields(t *testing.T) {
	c := New(10, true)
	q1 := record.Query{"a": record.Int(1), "b": record.Int(2)}
	q2 := record.Query{"b": record.Int(2), "a": record.Int(1)}

	c.Set(q2, result(7))
	got := c.Get(q1)

	require.True(t, got.IsPresent())
	v, _ := got.MustGet()[0].Get("id")
	assert.Equal(t, record.Int(7), v)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 0, stats.Misses)
}

func TestMissCounts(t *testing.T) {
	c := New(10, true)

	assert.True(t, c.Get(record.Query{"x": record.Int(1)}).IsAbsent())

	stats := c.Stats()
	assert.Equal(t, 0, stats.Hits)
	assert.Equal(t, 1, stats.Misses)
}

func TestDisabledCacheCountsNothing(t *testing.T) {
	c := New(10, false)
	q := record.Query{"x": record.Int(1)}

	c.Set(q, result(1))
	assert.True(t, c.Get(q).IsAbsent())

	stats := c.Stats()
	assert.False(t, stats.Enabled)
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, 0, stats.Hits)
	assert.Equal(t, 0, stats.Misses)
}

func TestDisableDropsEntries(t *testing.T) {
	c := New(10, true)
	q := record.Query{"x": record.Int(1)}
	c.Set(q, result(1))

	c.Disable()
	c.Enable()

	assert.True(t, c.Get(q).IsAbsent())
}

func TestLRUEviction(t *testing.T) {
	c := New(3, true)
	q := func(i int) record.Query {
		return record.Query{"n": record.Int(int64(i))}
	}

	for i := 0; i < 3; i++ {
		c.Set(q(i), result(int64(i)))
	}
	// One more than capacity: q(0) is the least recently used and must go.
	c.Set(q(3), result(3))

	assert.True(t, c.Get(q(0)).IsAbsent())
	for i := 1; i <= 3; i++ {
		assert.True(t, c.Get(q(i)).IsPresent(), "q(%d) should survive", i)
	}
	assert.Equal(t, 3, c.Stats().Size)
}

func TestGetPromotes(t *testing.T) {
	c := New(2, true)
	qa := record.Query{"k": record.String("a")}
	qb := record.Query{"k": record.String("b")}
	qc := record.Query{"k": record.String("c")}

	c.Set(qa, result(1))
	c.Set(qb, result(2))

	// Repeated gets on qa must never push it out ahead of the untouched qb.
	for i := 0; i < 5; i++ {
		require.True(t, c.Get(qa).IsPresent())
	}
	c.Set(qc, result(3))

	assert.True(t, c.Get(qa).IsPresent())
	assert.True(t, c.Get(qb).IsAbsent())
	assert.True(t, c.Get(qc).IsPresent())
}

func TestInvalidateKeepsCounters(t *testing.T) {
	c := New(10, true)
	q := record.Query{"x": record.Int(1)}
	c.Set(q, result(1))
	c.Get(q) // hit

	c.Invalidate()

	assert.True(t, c.Get(q).IsAbsent()) // miss
	stats := c.Stats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.Misses)
	assert.Equal(t, 0, stats.Size)
}

func TestSetCopiesResultSlice(t *testing.T) {
	c := New(10, true)
	q := record.Query{"x": record.Int(1)}
	live := result(1)

	c.Set(q, live)
	live[0] = record.FromPairs(record.F("id", record.Int(99)))

	got := c.Get(q)
	require.True(t, got.IsPresent())
	v, _ := got.MustGet()[0].Get("id")
	assert.Equal(t, record.Int(1), v)
}

func TestHitRate(t *testing.T) {
	c := New(10, true)
	assert.Zero(t, c.Stats().HitRate)

	q := record.Query{"x": record.Int(1)}
	c.Get(q) // miss
	c.Set(q, result(1))
	c.Get(q) // hit

	stats := c.Stats()
	assert.InDelta(t, 50.0, stats.HitRate, 0.001)
	assert.Contains(t, fmt.Sprint(stats), "50.00%")

	c.ResetStats()
	assert.Zero(t, c.Stats().Hits)
	assert.Zero(t, c.Stats().Misses)
}
