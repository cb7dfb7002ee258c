package flatdb

import (
	"strings"

	"github.com/pkg/errors"

	"flatdb/record"
)

// ErrQuery reports an aggregate applied to an empty or ill-typed column.
var ErrQuery = errors.New("query error")

// column collects the non-null values of field across the live list.
func (db *Database) column(field string) []record.Value {
	var out []record.Value
	for _, rec := range db.records {
		v, ok := rec.Get(field)
		if !ok {
			continue
		}
		if _, null := v.(record.Null); null || v == nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (db *Database) numericColumn(field string) ([]float64, error) {
	vals := db.column(field)
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		switch n := v.(type) {
		case record.Int:
			out = append(out, float64(n))
		case record.Float:
			out = append(out, float64(n))
		default:
			return nil, errors.WithMessagef(ErrQuery, "field %q holds non-numeric value %s", field, record.Canonical(v))
		}
	}
	return out, nil
}

// Min returns the smallest value of field. Empty or incomparable columns
// are ErrQuery.
func (db *Database) Min(field string) (record.Value, error) {
	return db.extremum(field, "min", -1)
}

// Max returns the largest value of field.
func (db *Database) Max(field string) (record.Value, error) {
	return db.extremum(field, "max", 1)
}

func (db *Database) extremum(field, op string, want int) (record.Value, error) {
	var best record.Value
	for _, v := range db.column(field) {
		if best == nil {
			best = v
			continue
		}
		c, ok := record.Compare(v, best)
		if !ok {
			return nil, errors.WithMessagef(ErrQuery, "%s of %q: values are not mutually comparable", op, field)
		}
		if c == want {
			best = v
		}
	}
	if best == nil {
		return nil, errors.WithMessagef(ErrQuery, "%s of %q: no values", op, field)
	}
	return best, nil
}

// Sum adds the numeric values of field. An empty column sums to 0.
func (db *Database) Sum(field string) (float64, error) {
	nums, err := db.numericColumn(field)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, n := range nums {
		sum += n
	}
	return sum, nil
}

// Avg is the arithmetic mean of field. An empty column is ErrQuery.
func (db *Database) Avg(field string) (float64, error) {
	nums, err := db.numericColumn(field)
	if err != nil {
		return 0, err
	}
	if len(nums) == 0 {
		return 0, errors.WithMessagef(ErrQuery, "avg of %q: no values", field)
	}
	var sum float64
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums)), nil
}

// Count is the number of records holding a non-null value for field.
func (db *Database) Count(field string) int {
	return len(db.column(field))
}

// Between returns the records whose field value lies in [lo, hi].
func (db *Database) Between(field string, lo, hi record.Value) []*record.Record {
	var out []*record.Record
	for _, rec := range db.records {
		v, ok := rec.Get(field)
		if !ok {
			continue
		}
		cl, lok := record.Compare(v, lo)
		ch, hok := record.Compare(v, hi)
		if lok && hok && cl >= 0 && ch <= 0 {
			out = append(out, rec)
		}
	}
	return out
}

// GroupBy buckets the live records by their field value, keyed by the
// value's canonical JSON form. Records without the field group under
// "null".
func (db *Database) GroupBy(field string) map[string][]*record.Record {
	groups := map[string][]*record.Record{}
	for _, rec := range db.records {
		v, ok := rec.Get(field)
		if !ok {
			v = record.Null{}
		}
		key := record.Canonical(v)
		groups[key] = append(groups[key], rec)
	}
	return groups
}

// Distinct returns the column's values in first-appearance order, each
// once.
func (db *Database) Distinct(field string) []record.Value {
	seen := map[string]struct{}{}
	var out []record.Value
	for _, v := range db.column(field) {
		key := record.Canonical(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Upper returns the column upper-cased. Non-string values are ErrQuery.
func (db *Database) Upper(field string) ([]string, error) {
	return db.mapStrings(field, strings.ToUpper)
}

// Lower returns the column lower-cased.
func (db *Database) Lower(field string) ([]string, error) {
	return db.mapStrings(field, strings.ToLower)
}

// Trim returns the column with surrounding whitespace removed.
func (db *Database) Trim(field string) ([]string, error) {
	return db.mapStrings(field, strings.TrimSpace)
}

// Length returns the rune length of each string in the column.
func (db *Database) Length(field string) ([]int, error) {
	ss, err := db.stringColumn(field)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(ss))
	for _, s := range ss {
		out = append(out, len([]rune(s)))
	}
	return out, nil
}

// Concat joins the column's strings with sep.
func (db *Database) Concat(field, sep string) (string, error) {
	ss, err := db.stringColumn(field)
	if err != nil {
		return "", err
	}
	return strings.Join(ss, sep), nil
}

func (db *Database) stringColumn(field string) ([]string, error) {
	vals := db.column(field)
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(record.String)
		if !ok {
			return nil, errors.WithMessagef(ErrQuery, "field %q holds non-string value %s", field, record.Canonical(v))
		}
		out = append(out, string(s))
	}
	return out, nil
}

func (db *Database) mapStrings(field string, fn func(string) string) ([]string, error) {
	ss, err := db.stringColumn(field)
	if err != nil {
		return nil, err
	}
	for i, s := range ss {
		ss[i] = fn(s)
	}
	return ss, nil
}
