package flatdb

import (
	"sort"

	"github.com/samber/mo"

	"flatdb/index"
	"flatdb/record"
)

// Builder is a chainable query over the store. Filters support the full
// operator-expression syntax; terminal calls evaluate lazily against the
// live list at that moment.
type Builder struct {
	db       *Database
	filters  []record.Query
	sortBy   string
	sortDesc bool
	limit    int
	mapFn    func(rec *record.Record) *record.Record
}

// Table starts a builder. The name is informational only: a store holds a
// single table, named by its data file.
func (db *Database) Table(name string) *Builder {
	return &Builder{db: db, limit: -1}
}

// Filter adds a conjunctive condition; repeated calls all must match.
func (b *Builder) Filter(q record.Query) *Builder {
	b.filters = append(b.filters, q)
	return b
}

// Sort orders results by field ascending. Records without the field, or
// with values incomparable to their neighbors, keep their relative order
// at the end.
func (b *Builder) Sort(field string) *Builder {
	b.sortBy = field
	b.sortDesc = false
	return b
}

// SortDesc orders results by field descending.
func (b *Builder) SortDesc(field string) *Builder {
	b.sortBy = field
	b.sortDesc = true
	return b
}

// Limit caps the result length. Negative means unlimited.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Map transforms each result record. The function receives the live
// record; return a new one to avoid mutating the store.
func (b *Builder) Map(fn func(rec *record.Record) *record.Record) *Builder {
	b.mapFn = fn
	return b
}

// Fetch evaluates the chain.
func (b *Builder) Fetch() []*record.Record {
	var result []*record.Record
	switch len(b.filters) {
	case 0:
		result = append(result, b.db.records...)
	case 1:
		// single filter goes through Find so the cache sees it
		result = append(result, b.db.Find(b.filters[0])...)
	default:
		for _, rec := range b.db.records {
			if b.matches(rec) {
				result = append(result, rec)
			}
		}
	}

	if b.sortBy != "" {
		sortRecords(result, b.sortBy, b.sortDesc)
	}
	if b.limit >= 0 && len(result) > b.limit {
		result = result[:b.limit]
	}
	if b.mapFn != nil {
		mapped := make([]*record.Record, 0, len(result))
		for _, rec := range result {
			mapped = append(mapped, b.mapFn(rec))
		}
		result = mapped
	}
	return result
}

// All is an alias for Fetch.
func (b *Builder) All() []*record.Record { return b.Fetch() }

// Count evaluates the chain and returns the result length.
func (b *Builder) Count() int { return len(b.Fetch()) }

// First returns the first result, or None when nothing matches.
func (b *Builder) First() mo.Option[*record.Record] {
	limited := *b
	if limited.sortBy == "" {
		limited.limit = 1
	}
	result := limited.Fetch()
	if len(result) == 0 {
		return mo.None[*record.Record]()
	}
	return mo.Some(result[0])
}

func (b *Builder) matches(rec *record.Record) bool {
	for _, q := range b.filters {
		if !index.MatchesAll(rec, q) {
			return false
		}
	}
	return true
}

func sortRecords(records []*record.Record, field string, desc bool) {
	sort.SliceStable(records, func(i, j int) bool {
		vi, iok := records[i].Get(field)
		vj, jok := records[j].Get(field)
		if !iok || !jok {
			return !jok && iok // present before absent
		}
		c, ok := record.Compare(vi, vj)
		if !ok {
			return false
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}
