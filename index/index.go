// Package index is the predicate engine: it evaluates structured queries
// against records and maintains a value index for equality lookups.
package index

import (
	"strings"

	"flatdb/kv"
	"flatdb/record"
)

// sep joins field name and canonical value in bucket keys. Record fields
// never contain it in practice; a field that does simply gets no bucket
// fast path.
const sep = "\x1f"

// bucket holds what was observed for one (field, value) pair: positions
// into the indexed list, or the records themselves when built storeFull.
type bucket struct {
	positions []int
	records   []*record.Record
}

// Indexer maps (field, value) pairs to the records carrying them. The
// index reflects exactly the record list passed to the last Build call;
// callers rebuild after every structural mutation before querying.
type Indexer struct {
	buckets   kv.Storage[*bucket]
	storeFull bool
}

// New returns an Indexer over sorted bucket storage.
func New() *Indexer {
	return &Indexer{buckets: kv.NewSortedStorage[*bucket]()}
}

// NewPrefixTree returns an Indexer over prefix-tree bucket storage.
func NewPrefixTree() *Indexer {
	return &Indexer{buckets: kv.NewPrefixTreeStorage[*bucket]()}
}

// Build clears and repopulates the index with one scan over records. With
// storeFull the buckets hold the records themselves instead of positions.
func (ix *Indexer) Build(records []*record.Record, storeFull bool) {
	ix.buckets.Clear()
	ix.storeFull = storeFull
	for pos, rec := range records {
		for _, field := range rec.Keys() {
			v, _ := rec.Get(field)
			key := bucketKey(field, v)
			b, ok := ix.buckets.Get(key)
			if !ok {
				b = &bucket{}
				ix.buckets.Set(key, b)
			}
			if storeFull {
				b.records = append(b.records, rec)
			} else {
				b.positions = append(b.positions, pos)
			}
		}
	}
}

// Query evaluates conditions against records, ANDing across fields. An
// empty query returns the list unchanged, in its original order. A single
// plain-equality condition on a non-null literal is answered from the
// index when one is built; everything else takes a full predicate scan.
func (ix *Indexer) Query(records []*record.Record, q record.Query) []*record.Record {
	if len(q) == 0 {
		return records
	}
	if len(q) == 1 && ix.buckets.Len() > 0 {
		for field, spec := range q {
			if indexable(spec) {
				return ix.lookup(records, field, spec)
			}
		}
	}

	var out []*record.Record
	for _, rec := range records {
		if MatchesAll(rec, q) {
			out = append(out, rec)
		}
	}
	return out
}

// indexable reports whether a condition can be served from the index:
// plain equality on a non-null literal. Null equality must scan, because
// absent fields never enter the index.
func indexable(spec record.Value) bool {
	if spec == nil {
		return false
	}
	if _, isNull := spec.(record.Null); isNull {
		return false
	}
	_, isOp := record.OperatorExpr(spec)
	return !isOp
}

// Lookup returns the records whose field equals v, in scan order, using
// the index built by the last Build call.
func (ix *Indexer) Lookup(records []*record.Record, field string, v record.Value) []*record.Record {
	return ix.lookup(records, field, v)
}

func (ix *Indexer) lookup(records []*record.Record, field string, v record.Value) []*record.Record {
	b, ok := ix.buckets.Get(bucketKey(field, v))
	if !ok {
		return nil
	}
	if ix.storeFull {
		return append([]*record.Record(nil), b.records...)
	}
	out := make([]*record.Record, 0, len(b.positions))
	for _, pos := range b.positions {
		if pos < len(records) {
			out = append(out, records[pos])
		}
	}
	return out
}

// Values enumerates the canonical forms of the values observed for a
// field in the current index.
func (ix *Indexer) Values(field string) []string {
	prefix := field + sep
	var out []string
	rng := ix.buckets.Range(prefix)
	for rng.Next() {
		k, _ := rng.Value()
		out = append(out, strings.TrimPrefix(k, prefix))
	}
	return out
}

func bucketKey(field string, v record.Value) string {
	return field + sep + record.Canonical(v)
}
