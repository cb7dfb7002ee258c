// Package schema is the optional validation collaborator: field kinds,
// required/default handling and not-null/unique/primary-key constraints
// layered on top of the otherwise schemaless store.
package schema

import (
	"github.com/pkg/errors"
	"github.com/samber/mo"

	"flatdb/record"
)

// Violation sentinels, matchable with errors.Is.
var (
	ErrRequired   = errors.New("missing required field")
	ErrKind       = errors.New("field has wrong type")
	ErrNotNull    = errors.New("field cannot be null")
	ErrPrimaryKey = errors.New("primary key value already exists")
	ErrUnique     = errors.New("duplicate value for unique field")
)

// Kind constrains a field's value type. Any accepts everything.
type Kind int

const (
	Any Kind = iota
	StringKind
	IntKind
	FloatKind
	NumberKind // Int or Float
	BoolKind
	ListKind
	MapKind
)

// Field declares one constrained field. Default, when present, is filled
// into records where the field is absent or null.
type Field struct {
	Name       string
	Kind       Kind
	PrimaryKey bool
	Unique     bool
	NotNull    bool
	Required   bool
	Default    mo.Option[record.Value]
}

// Schema validates records against a declared field set. Fields not
// declared here pass through untouched.
type Schema struct {
	fields  []Field
	primary string
}

func New() *Schema { return &Schema{} }

// AddField registers a field. A primary key is implicitly unique and
// not-null; only one primary key is allowed.
func (s *Schema) AddField(f Field) error {
	if f.Name == "" {
		return errors.New("field name cannot be empty")
	}
	if f.PrimaryKey {
		if s.primary != "" {
			return errors.Errorf("only one primary key allowed, already have %q", s.primary)
		}
		s.primary = f.Name
		f.Unique = true
		f.NotNull = true
	}
	s.fields = append(s.fields, f)
	return nil
}

// MustAddField panics on AddField errors; declaration-time convenience.
func (s *Schema) MustAddField(f Field) *Schema {
	if err := s.AddField(f); err != nil {
		panic(err.Error())
	}
	return s
}

// Validate checks rec against the schema, filling declared defaults into
// absent or null fields, and enforces uniqueness against dataset.
func (s *Schema) Validate(rec *record.Record, dataset []*record.Record) error {
	for _, f := range s.fields {
		v, present := rec.Get(f.Name)

		if f.Required && !present {
			return errors.Wrap(ErrRequired, f.Name)
		}
		if present && !isNull(v) && !kindOK(f.Kind, v) {
			return errors.Wrap(ErrKind, f.Name)
		}
		if def, ok := f.Default.Get(); ok && (!present || isNull(v)) {
			rec.Set(f.Name, def)
		}
	}

	for _, f := range s.fields {
		if !f.NotNull {
			continue
		}
		if v, present := rec.Get(f.Name); !present || isNull(v) {
			return errors.Wrap(ErrNotNull, f.Name)
		}
	}

	if s.primary != "" {
		pk, _ := rec.Get(s.primary)
		for _, existing := range dataset {
			if ev, ok := existing.Get(s.primary); ok && record.Equal(ev, pk) {
				return errors.Wrap(ErrPrimaryKey, s.primary)
			}
		}
	}

	for _, f := range s.fields {
		if !f.Unique || f.Name == s.primary {
			continue
		}
		v, present := rec.Get(f.Name)
		if !present || isNull(v) {
			continue
		}
		for _, existing := range dataset {
			if ev, ok := existing.Get(f.Name); ok && record.Equal(ev, v) {
				return errors.Wrap(ErrUnique, f.Name)
			}
		}
	}

	return nil
}

func isNull(v record.Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(record.Null)
	return ok
}

func kindOK(k Kind, v record.Value) bool {
	switch k {
	case Any:
		return true
	case StringKind:
		_, ok := v.(record.String)
		return ok
	case IntKind:
		_, ok := v.(record.Int)
		return ok
	case FloatKind:
		_, ok := v.(record.Float)
		return ok
	case NumberKind:
		switch v.(type) {
		case record.Int, record.Float:
			return true
		}
		return false
	case BoolKind:
		_, ok := v.(record.Bool)
		return ok
	case ListKind:
		_, ok := v.(record.List)
		return ok
	case MapKind:
		_, ok := v.(*record.Record)
		return ok
	}
	return false
}
