package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Record is an insertion-ordered mapping from field name to Value. The zero
// value is not usable; construct with New or FromPairs.
type Record struct {
	keys   []string
	fields map[string]Value
}

// Pair is a field name and value, for ordered construction.
type Pair struct {
	Key string
	Val Value
}

// F is shorthand for a Pair.
func F(key string, val Value) Pair { return Pair{Key: key, Val: val} }

func New() *Record {
	return &Record{fields: make(map[string]Value)}
}

func FromPairs(pairs ...Pair) *Record {
	r := New()
	for _, p := range pairs {
		r.Set(p.Key, p.Val)
	}
	return r
}

// Get returns the value of a field. Absent fields report ok=false.
func (r *Record) Get(key string) (Value, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Has reports whether the field is present (even if Null).
func (r *Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// Set replaces an existing field in place, or appends a new one.
func (r *Record) Set(key string, val Value) {
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = val
}

// Delete removes a field and its position. Reports whether it was present.
func (r *Record) Delete(key string) bool {
	if _, ok := r.fields[key]; !ok {
		return false
	}
	delete(r.fields, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
	return true
}

func (r *Record) Len() int { return len(r.keys) }

// Keys returns field names in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Merge sets every field of patch on r, replacing existing values in place
// and appending new fields in patch order.
func (r *Record) Merge(patch *Record) {
	for _, k := range patch.keys {
		r.Set(k, patch.fields[k])
	}
}

// Clone deep-copies the record, preserving field order.
func (r *Record) Clone() *Record {
	out := &Record{
		keys:   make([]string, len(r.keys)),
		fields: make(map[string]Value, len(r.fields)),
	}
	copy(out.keys, r.keys)
	for k, v := range r.fields {
		out.fields[k] = CloneValue(v)
	}
	return out
}

// Equal compares by field set and deep value equality; insertion order is
// not significant.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if len(r.fields) != len(o.fields) {
		return false
	}
	for k, v := range r.fields {
		ov, ok := o.fields[k]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

// MarshalJSON writes fields in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		sb.Write(kb)
		sb.WriteByte(':')
		vb, err := marshalValue(r.fields[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		sb.Write(vb)
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

// UnmarshalJSON decodes an object, preserving key order. Numbers without a
// fractional part decode as Int, everything else as Float.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}
	rec, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*r = *rec
	return nil
}

// decodeObject consumes fields up to and including the closing brace. The
// opening brace must already be consumed.
func decodeObject(dec *json.Decoder) (*Record, error) {
	rec := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("record: expected field name, got %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		rec.Set(key, val)
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return nil, err
	}
	return rec, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			var list List
			for dec.More() {
				elem, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, elem)
			}
			if _, err := dec.Token(); err != nil { // closing ']'
				return nil, err
			}
			if list == nil {
				list = List{}
			}
			return list, nil
		}
		return nil, fmt.Errorf("record: unexpected delimiter %v", t)
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		if !strings.ContainsAny(string(t), ".eE") {
			if n, err := t.Int64(); err == nil {
				return Int(n), nil
			}
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case nil:
		return Null{}, nil
	}
	return nil, fmt.Errorf("record: unexpected token %v", tok)
}

func (r *Record) String() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return "<invalid record>"
	}
	return string(b)
}
