// Package flatdb is an embedded, encrypted, single-file document store.
// Records are insertion-ordered field maps kept fully in memory; every
// mutation rewrites the data file through a WAL-staged atomic rename, so
// a crash mid-write never leaves a torn file behind.
package flatdb

import (
	"bytes"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"flatdb/cache"
	"flatdb/index"
	"flatdb/migrate"
	"flatdb/record"
	"flatdb/security"
	"flatdb/storage"
	"flatdb/txn"
)

// ErrCorrupt reports a data file that exists but cannot be decrypted or
// parsed. Opening such a store fails rather than silently dropping data.
var ErrCorrupt = errors.New("store content is corrupt or the password is wrong")

// Validator screens records before they enter the store. schema.Schema
// implements it; the default accepts everything.
type Validator interface {
	Validate(rec *record.Record, dataset []*record.Record) error
}

type acceptAll struct{}

func (acceptAll) Validate(*record.Record, []*record.Record) error { return nil }

type Options struct {
	Fs        afero.Fs
	Folder    string
	Password  string          // derives an AES-256-GCM cipher when set
	Cipher    security.Cipher // overrides Password when non-nil
	Validator Validator

	CacheSize    int
	CacheEnabled bool
	PrefixIndex  bool // back the index with a prefix tree instead of a skip list

	Logger *slog.Logger
}

var DefaultOptions = Options{
	Folder:       "data",
	CacheSize:    cache.DefaultSize,
	CacheEnabled: true,
}

type Database struct {
	store     *storage.Store
	cipher    security.Cipher
	validator Validator
	records   []*record.Record
	idx       *index.Indexer
	cache     *cache.Cache
	ledger    *migrate.Ledger
	log       *slog.Logger
}

// Open loads (or creates) the store named name under opts.Folder. An
// interrupted previous write is recovered from its WAL first. An absent
// or empty data file starts the store empty; undecodable content is
// ErrCorrupt.
func Open(name string, opts Options) (*Database, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Folder == "" {
		opts.Folder = DefaultOptions.Folder
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Cipher == nil {
		if opts.Password != "" {
			opts.Cipher = security.NewAESCipher(opts.Password)
		} else {
			opts.Cipher = security.Plain{}
		}
	}
	if opts.Validator == nil {
		opts.Validator = acceptAll{}
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = cache.DefaultSize
	}

	store, err := storage.NewStore(opts.Fs, opts.Folder, name, opts.Logger)
	if err != nil {
		return nil, err
	}
	if store.HasWAL() {
		if store.RecoverFromWAL() {
			opts.Logger.Info("recovered interrupted write", "path", store.Path())
		} else {
			opts.Logger.Warn("could not recover interrupted write", "path", store.Path())
		}
	}

	idx := index.New()
	if opts.PrefixIndex {
		idx = index.NewPrefixTree()
	}
	ledger, err := migrate.NewLedger(opts.Fs, opts.Folder, name, opts.Logger)
	if err != nil {
		return nil, err
	}

	db := &Database{
		store:     store,
		cipher:    opts.Cipher,
		validator: opts.Validator,
		idx:       idx,
		cache:     cache.New(opts.CacheSize, opts.CacheEnabled),
		ledger:    ledger,
		log:       opts.Logger,
	}
	if err := db.load(); err != nil {
		return nil, err
	}
	db.idx.Build(db.records, true)
	db.log.Info("store opened", "path", store.Path(), "records", len(db.records),
		"schema_version", ledger.Version())
	return db, nil
}

func (db *Database) load() error {
	data, err := db.store.Read()
	if err != nil {
		return errors.Wrap(err, "reading store")
	}
	if data == nil {
		db.log.Warn("data file not found, starting empty", "path", db.store.Path())
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		db.log.Warn("data file is empty, starting empty", "path", db.store.Path())
		return nil
	}
	records, err := db.cipher.Decrypt(data)
	if err != nil {
		return errors.WithMessagef(ErrCorrupt, "loading %q: %v", db.store.Path(), err)
	}
	db.records = records
	return nil
}

// Path is the data file path.
func (db *Database) Path() string { return db.store.Path() }

// Len is the number of live records.
func (db *Database) Len() int { return len(db.records) }

// Insert validates rec against the live data and appends it. The record
// is stored as given, not copied.
func (db *Database) Insert(rec *record.Record) error {
	if err := db.validator.Validate(rec, db.records); err != nil {
		return err
	}
	db.records = append(db.records, rec)
	return db.commit()
}

// Find returns the records fully matching q, serving repeated queries
// from the cache. Returned records alias the live list, so mutating them
// mutates the store's in-memory state.
func (db *Database) Find(q record.Query) []*record.Record {
	if hit, ok := db.cache.Get(q).Get(); ok {
		return hit
	}
	result := db.idx.Query(db.records, q)
	db.cache.Set(q, result)
	return result
}

// Update merges patch into every record matching q and reports how many
// changed. Zero matches writes nothing.
func (db *Database) Update(q record.Query, patch *record.Record) (int, error) {
	matched := db.Find(q)
	if len(matched) == 0 {
		db.log.Warn("no records matched update query")
		return 0, nil
	}
	for _, rec := range matched {
		rec.Merge(patch)
	}
	return len(matched), db.commit()
}

// Delete removes every record whose fields equal q exactly. Operator
// expressions are not interpreted here; use Find to select first.
func (db *Database) Delete(q record.Query) (int, error) {
	kept := db.records[:0]
	for _, rec := range db.records {
		if !equalityMatch(rec, q) {
			kept = append(kept, rec)
		}
	}
	deleted := len(db.records) - len(kept)
	db.records = kept
	return deleted, db.commit()
}

// commit re-derives everything that depends on the record list and then
// persists it. Order matters: the cache must never outlive the data it
// was filled from.
func (db *Database) commit() error {
	db.idx.Build(db.records, true)
	db.cache.Invalidate()
	return db.persist()
}

func (db *Database) persist() error {
	data, err := db.cipher.Encrypt(db.records)
	if err != nil {
		return errors.Wrap(err, "encoding records")
	}
	return db.store.Write(data)
}

// Snapshot deep-copies the live record list.
func (db *Database) Snapshot() []*record.Record {
	out := make([]*record.Record, 0, len(db.records))
	for _, rec := range db.records {
		out = append(out, rec.Clone())
	}
	return out
}

// Install replaces the live record list wholesale. On failure the
// previous list stays in place.
func (db *Database) Install(records []*record.Record) error {
	prev := db.records
	db.records = records
	if err := db.commit(); err != nil {
		db.records = prev
		db.idx.Build(prev, true)
		return err
	}
	return nil
}

// Validate applies the configured validator.
func (db *Database) Validate(rec *record.Record, dataset []*record.Record) error {
	return db.validator.Validate(rec, dataset)
}

// Transaction starts a new pending transaction over this store.
func (db *Database) Transaction() *txn.Txn {
	return txn.New(db, db.log)
}

// WithTransaction runs fn inside a transaction: an error rolls back and
// is returned, otherwise the transaction commits unless fn already
// finished it.
func (db *Database) WithTransaction(fn func(t *txn.Txn) error) error {
	t := db.Transaction()
	if err := t.Begin(); err != nil {
		return err
	}
	if err := fn(t); err != nil {
		if t.IsActive() {
			if rbErr := t.Rollback(); rbErr != nil {
				db.log.Error("rollback failed", "txn", t.ID(), "err", rbErr)
			}
		}
		return err
	}
	if t.IsActive() {
		return t.Commit()
	}
	return nil
}

// MigrateSchema runs fn against a Migration over the live list. An error
// restores the pre-migration records wholesale and leaves the schema
// version untouched; success bumps the version ledger and persists.
func (db *Database) MigrateSchema(name string, fn func(m *migrate.Migration) error) error {
	snapshot := db.Snapshot()
	restore := func(err error) error {
		db.records = snapshot
		db.idx.Build(db.records, true)
		db.cache.Invalidate()
		db.log.Warn("migration failed, records restored", "migration", name, "err", err)
		return err
	}
	if err := fn(migrate.New(db.records, db.log)); err != nil {
		return restore(err)
	}
	// a version bump that cannot be recorded rolls the migration back too,
	// otherwise the data and the ledger would disagree
	if err := db.ledger.Increment(name); err != nil {
		return restore(err)
	}
	return db.commit()
}

// SchemaVersion is the current version from the ledger side file.
func (db *Database) SchemaVersion() int { return db.ledger.Version() }

// MigrationHistory lists applied migrations.
func (db *Database) MigrationHistory() []migrate.LedgerEntry { return db.ledger.History() }

func (db *Database) CacheStats() cache.Stats { return db.cache.Stats() }
func (db *Database) ClearCache()             { db.cache.Clear() }
func (db *Database) EnableCache()            { db.cache.Enable() }
func (db *Database) DisableCache()           { db.cache.Disable() }

// equalityMatch is delete's matching rule: plain equality on every query
// field with absent fields reading as Null.
func equalityMatch(rec *record.Record, q record.Query) bool {
	for field, want := range q {
		v, ok := rec.Get(field)
		if !ok {
			v = record.Null{}
		}
		if !record.Equal(v, want) {
			return false
		}
	}
	return true
}
