// Package record holds the store's data model: a sealed variant type for
// field values and an insertion-ordered string-keyed record built from them.
// No schema is enforced at this level; field sets and types vary per record.
package record

import (
	"encoding/json"
	"strings"
)

// Value is the sealed set of types a field may hold. Only Null, String,
// Int, Float, Bool, List and nested *Record implement it.
type Value interface {
	value()
}

// Null is an explicit null. An absent field compares equal to Null.
type Null struct{}

type (
	String string
	Int    int64
	Float  float64
	Bool   bool
	List   []Value
)

func (Null) value()    {}
func (String) value()  {}
func (Int) value()     {}
func (Float) value()   {}
func (Bool) value()    {}
func (List) value()    {}
func (*Record) value() {}

// Equal reports deep equality of two values. Numeric values compare across
// Int and Float, so Int(1) equals Float(1). Nested records compare by
// key set, not insertion order.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int, Float:
		an, _ := numeric(a)
		bn, ok := numeric(b)
		return ok && an == bn
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Record:
		bv, ok := b.(*Record)
		return ok && av.Equal(bv)
	}
	return false
}

// Compare orders two values. Numbers order against numbers and strings
// against strings; any other pairing is incomparable and reports ok=false.
func Compare(a, b Value) (int, bool) {
	if an, ok := numeric(a); ok {
		bn, ok := numeric(b)
		if !ok {
			return 0, false
		}
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		}
		return 0, true
	}
	if as, ok := a.(String); ok {
		bs, ok := b.(String)
		if !ok {
			return 0, false
		}
		return strings.Compare(string(as), string(bs)), true
	}
	return 0, false
}

func numeric(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	}
	return 0, false
}

// CloneValue deep-copies a value. Scalars are returned as-is.
func CloneValue(v Value) Value {
	switch t := v.(type) {
	case List:
		out := make(List, len(t))
		for i := range t {
			out[i] = CloneValue(t[i])
		}
		return out
	case *Record:
		return t.Clone()
	default:
		return v
	}
}

// MarshalJSON implementations keep encoding/json usable on any Value.

func (Null) MarshalJSON() ([]byte, error)     { return []byte("null"), nil }
func (s String) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }
func (n Int) MarshalJSON() ([]byte, error)    { return json.Marshal(int64(n)) }
func (f Float) MarshalJSON() ([]byte, error)  { return json.Marshal(float64(f)) }
func (b Bool) MarshalJSON() ([]byte, error)   { return json.Marshal(bool(b)) }

func (l List) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, elem := range l {
		if i > 0 {
			sb.WriteByte(',')
		}
		eb, err := marshalValue(elem)
		if err != nil {
			return nil, err
		}
		sb.Write(eb)
	}
	sb.WriteByte(']')
	return []byte(sb.String()), nil
}

func marshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}
