package record

import (
	"encoding/json"
	"sort"
	"strings"
)

// Query maps field names to either an equality literal or an
// operator-expression: a nested record whose keys all begin with '$'
// (e.g. {"age": {"$gt": 22}}). Multiple fields AND together.
type Query map[string]Value

// OperatorExpr reports whether a query value selects operator semantics
// rather than plain equality.
func OperatorExpr(v Value) (*Record, bool) {
	rec, ok := v.(*Record)
	if !ok || rec.Len() == 0 {
		return nil, false
	}
	for _, k := range rec.keys {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return rec, true
}

// Canonical renders the query as a field-sorted string, so queries with the
// same field/value sets normalize to the same key regardless of the order
// they were written in. Nested records are key-sorted too.
func (q Query) Canonical() string {
	fields := make([]string, 0, len(q))
	for f := range q {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeJSONString(&sb, f)
		sb.WriteByte(':')
		writeCanonical(&sb, q[f])
	}
	sb.WriteByte('}')
	return sb.String()
}

// Canonical renders a single value with nested keys sorted, suitable for
// use as a stable map key.
func Canonical(v Value) string {
	var sb strings.Builder
	writeCanonical(&sb, v)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, v Value) {
	switch t := v.(type) {
	case nil, Null:
		sb.WriteString("null")
	case List:
		sb.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, elem)
		}
		sb.WriteByte(']')
	case *Record:
		keys := t.Keys()
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeJSONString(sb, k)
			sb.WriteByte(':')
			val, _ := t.Get(k)
			writeCanonical(sb, val)
		}
		sb.WriteByte('}')
	default:
		b, err := json.Marshal(t)
		if err != nil {
			sb.WriteString("null")
			return
		}
		sb.Write(b)
	}
}

func writeJSONString(sb *strings.Builder, s string) {
	b, _ := json.Marshal(s)
	sb.Write(b)
}
