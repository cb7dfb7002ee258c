// Package migrate evolves the shape of stored records: field-level
// migrations applied across the whole record list, with a versioned
// ledger persisted next to the data file.
package migrate

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"flatdb/record"
)

// Sentinel default values, resolved per record at migration time.
const (
	DefaultNow       = "NOW()"
	DefaultUUID      = "UUID()"
	DefaultEmptyStr  = "EMPTY_STRING()"
	DefaultZero      = "ZERO()"
	DefaultFalse     = "FALSE()"
	DefaultEmptyList = "EMPTY_LIST()"
	DefaultEmptyDict = "EMPTY_DICT()"
)

// Migration mutates a record list in place. Callers that need rollback
// snapshot the list before running one.
type Migration struct {
	records []*record.Record
	log     *slog.Logger
}

func New(records []*record.Record, log *slog.Logger) *Migration {
	if log == nil {
		log = slog.Default()
	}
	return &Migration{records: records, log: log}
}

// AddField sets field to the resolved default on every record that does
// not already hold it. Records with the field keep their value.
func (m *Migration) AddField(field string, def record.Value) error {
	if field == "" {
		return errors.New("migrate: field name is empty")
	}
	added := 0
	for _, rec := range m.records {
		if rec.Has(field) {
			continue
		}
		rec.Set(field, resolveDefault(def))
		added++
	}
	m.log.Info("migration: added field", "field", field, "records", added)
	return nil
}

// RemoveField drops field from every record.
func (m *Migration) RemoveField(field string) error {
	if field == "" {
		return errors.New("migrate: field name is empty")
	}
	removed := 0
	for _, rec := range m.records {
		if rec.Delete(field) {
			removed++
		}
	}
	m.log.Info("migration: removed field", "field", field, "records", removed)
	return nil
}

// RenameField moves old to new on every record holding old. Any record
// already holding new aborts the rename before anything is touched.
func (m *Migration) RenameField(old, new string) error {
	if old == "" || new == "" {
		return errors.New("migrate: field name is empty")
	}
	if old == new {
		return errors.Errorf("migrate: rename %q to itself", old)
	}
	for _, rec := range m.records {
		if rec.Has(old) && rec.Has(new) {
			return errors.Errorf("migrate: rename %q to %q: target field already exists", old, new)
		}
	}
	renamed := 0
	for _, rec := range m.records {
		v, ok := rec.Get(old)
		if !ok {
			continue
		}
		rec.Delete(old)
		rec.Set(new, v)
		renamed++
	}
	m.log.Info("migration: renamed field", "from", old, "to", new, "records", renamed)
	return nil
}

// SetDefault fills field with the resolved default on records where it is
// absent or null. Existing non-null values are untouched.
func (m *Migration) SetDefault(field string, def record.Value) error {
	if field == "" {
		return errors.New("migrate: field name is empty")
	}
	filled := 0
	for _, rec := range m.records {
		v, ok := rec.Get(field)
		if ok {
			if _, null := v.(record.Null); !null && v != nil {
				continue
			}
		}
		rec.Set(field, resolveDefault(def))
		filled++
	}
	m.log.Info("migration: set default", "field", field, "records", filled)
	return nil
}

// resolveDefault expands sentinel string defaults, per record so UUID()
// yields distinct ids.
func resolveDefault(def record.Value) record.Value {
	s, ok := def.(record.String)
	if !ok {
		return record.CloneValue(def)
	}
	switch string(s) {
	case DefaultNow:
		return record.String(time.Now().UTC().Format(time.RFC3339))
	case DefaultUUID:
		return record.String(uuid.NewString())
	case DefaultEmptyStr:
		return record.String("")
	case DefaultZero:
		return record.Int(0)
	case DefaultFalse:
		return record.Bool(false)
	case DefaultEmptyList:
		return record.List{}
	case DefaultEmptyDict:
		return record.New()
	}
	return s
}
