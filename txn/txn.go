// Package txn provides snapshot-isolated transactions: a batch of
// insert/update/delete operations staged on a private deep copy of the
// record list, installed wholesale on commit or discarded on rollback.
// Isolation comes from the copy itself: nothing is visible to readers of
// the live store until commit, and rollback is simply dropping the copy.
package txn

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"flatdb/record"
)

// Host is the store a transaction runs against. Install must atomically
// adopt records as the live list (rebuild index, invalidate cache,
// persist).
type Host interface {
	Snapshot() []*record.Record
	Install(records []*record.Record) error
	Validate(rec *record.Record, dataset []*record.Record) error
}

type state int

const (
	statePending state = iota
	stateActive
	stateCommitted
	stateRolledBack
)

func (s state) String() string {
	switch s {
	case statePending:
		return "not active"
	case stateActive:
		return "active"
	case stateCommitted:
		return "already committed"
	case stateRolledBack:
		return "rolled back"
	}
	return "unknown"
}

// StateError reports an operation attempted outside the transaction's
// valid state. It is a programmer error, not a data error.
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: transaction %s", e.Op, e.State)
}

// OpKind tags entries of the operation log.
type OpKind string

const (
	OpInsert OpKind = "insert"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Operation describes one queued mutation. The log exists for
// introspection only; commit installs the mutated snapshot, it does not
// replay the log.
type Operation struct {
	Kind     OpKind
	Record   *record.Record
	Query    record.Query
	Patch    *record.Record
	Affected int
}

// Txn is a single transaction over a Host. Lifecycle:
// pending → active → committed or rolledBack.
type Txn struct {
	id       string
	host     Host
	log      *slog.Logger
	state    state
	snapshot []*record.Record
	ops      []Operation
}

func New(host Host, log *slog.Logger) *Txn {
	if log == nil {
		log = slog.Default()
	}
	return &Txn{
		id:   uuid.NewString(),
		host: host,
		log:  log,
	}
}

// ID is the transaction's correlation id, used in log lines.
func (t *Txn) ID() string { return t.id }

// Begin deep-copies the live record list into the private snapshot and
// activates the transaction.
func (t *Txn) Begin() error {
	if t.state != statePending {
		return &StateError{Op: "begin", State: t.state.String()}
	}
	t.snapshot = t.host.Snapshot()
	t.state = stateActive
	t.log.Info("transaction started", "txn", t.id, "records", len(t.snapshot))
	return nil
}

func (t *Txn) checkActive(op string) error {
	if t.state != stateActive {
		return &StateError{Op: op, State: t.state.String()}
	}
	return nil
}

// Insert validates rec against the snapshot (not the live store) and
// appends it to the snapshot.
func (t *Txn) Insert(rec *record.Record) error {
	if err := t.checkActive("insert"); err != nil {
		return err
	}
	if err := t.host.Validate(rec, t.snapshot); err != nil {
		return err
	}
	t.snapshot = append(t.snapshot, rec)
	t.ops = append(t.ops, Operation{Kind: OpInsert, Record: rec})
	t.log.Info("transaction: queued insert", "txn", t.id)
	return nil
}

// Update patches every snapshot record fully matching q by plain field
// equality. Zero matches is not an error.
func (t *Txn) Update(q record.Query, patch *record.Record) error {
	if err := t.checkActive("update"); err != nil {
		return err
	}
	affected := 0
	for _, rec := range t.snapshot {
		if equalityMatch(rec, q) {
			rec.Merge(patch)
			affected++
		}
	}
	if affected == 0 {
		t.log.Warn("transaction: no records matched update query", "txn", t.id)
	}
	t.ops = append(t.ops, Operation{Kind: OpUpdate, Query: q, Patch: patch, Affected: affected})
	t.log.Info("transaction: queued update", "txn", t.id, "affected", affected)
	return nil
}

// Delete drops every snapshot record fully matching q by plain field
// equality.
func (t *Txn) Delete(q record.Query) error {
	if err := t.checkActive("delete"); err != nil {
		return err
	}
	kept := t.snapshot[:0]
	for _, rec := range t.snapshot {
		if !equalityMatch(rec, q) {
			kept = append(kept, rec)
		}
	}
	affected := len(t.snapshot) - len(kept)
	t.snapshot = kept
	t.ops = append(t.ops, Operation{Kind: OpDelete, Query: q, Affected: affected})
	t.log.Info("transaction: queued delete", "txn", t.id, "affected", affected)
	return nil
}

// Commit installs the snapshot as the live record list. Only an active
// transaction commits; a failed install leaves the transaction active.
func (t *Txn) Commit() error {
	if t.state != stateActive {
		return &StateError{Op: "commit", State: t.state.String()}
	}
	if err := t.host.Install(t.snapshot); err != nil {
		t.log.Error("transaction commit failed", "txn", t.id, "err", err)
		return errors.Wrap(err, "committing transaction")
	}
	t.state = stateCommitted
	t.log.Info("transaction committed", "txn", t.id, "operations", len(t.ops))
	return nil
}

// Rollback discards the snapshot and operation log. Rolling back twice is
// a warned no-op; rolling back after commit is an error.
func (t *Txn) Rollback() error {
	switch t.state {
	case stateCommitted:
		return &StateError{Op: "rollback", State: t.state.String()}
	case stateRolledBack:
		t.log.Warn("transaction already rolled back", "txn", t.id)
		return nil
	}
	t.snapshot = nil
	t.ops = nil
	t.state = stateRolledBack
	t.log.Info("transaction rolled back", "txn", t.id)
	return nil
}

// Operations returns a copy of the queued operation descriptors.
func (t *Txn) Operations() []Operation {
	return append([]Operation(nil), t.ops...)
}

func (t *Txn) IsActive() bool     { return t.state == stateActive }
func (t *Txn) IsCommitted() bool  { return t.state == stateCommitted }
func (t *Txn) IsRolledBack() bool { return t.state == stateRolledBack }

// equalityMatch applies delete/update-in-transaction semantics: plain
// equality on every query field, absent fields reading as Null. Operator
// expressions are not interpreted here.
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
