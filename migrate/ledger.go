package migrate

import (
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// LedgerEntry records one applied migration.
type LedgerEntry struct {
	FromVersion int    `json:"from_version"`
	ToVersion   int    `json:"to_version"`
	Name        string `json:"name"`
	Timestamp   string `json:"timestamp"`
}

type ledgerState struct {
	Version    int           `json:"version"`
	CreatedAt  string        `json:"created_at"`
	UpdatedAt  string        `json:"updated_at"`
	Migrations []LedgerEntry `json:"migrations"`
}

// Ledger tracks the schema version of a store in a `<name>_schema.json`
// side file next to the data file. An absent or unreadable file is
// replaced with a fresh version-0 ledger.
type Ledger struct {
	fs    afero.Fs
	path  string
	log   *slog.Logger
	state ledgerState
}

func NewLedger(fs afero.Fs, folder, name string, log *slog.Logger) (*Ledger, error) {
	if log == nil {
		log = slog.Default()
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	l := &Ledger{
		fs:   fs,
		path: filepath.Join(folder, base+"_schema.json"),
		log:  log,
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path is the ledger's file path.
func (l *Ledger) Path() string { return l.path }

func (l *Ledger) load() error {
	data, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		return l.init()
	}
	var state ledgerState
	if err := json.Unmarshal(data, &state); err != nil {
		l.log.Warn("schema ledger unreadable, reinitializing", "path", l.path, "err", err)
		return l.init()
	}
	l.state = state
	return nil
}

func (l *Ledger) init() error {
	now := timestamp()
	l.state = ledgerState{
		Version:    0,
		CreatedAt:  now,
		UpdatedAt:  now,
		Migrations: []LedgerEntry{},
	}
	return l.flush()
}

func (l *Ledger) flush() error {
	data, err := json.MarshalIndent(l.state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding schema ledger")
	}
	if err := afero.WriteFile(l.fs, l.path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing schema ledger %q", l.path)
	}
	return nil
}

// Increment bumps the version and appends a history entry for the named
// migration.
func (l *Ledger) Increment(name string) error {
	prev := l.state
	from := prev.Version
	now := timestamp()
	next := prev
	next.Version = from + 1
	next.UpdatedAt = now
	next.Migrations = append(append([]LedgerEntry(nil), prev.Migrations...), LedgerEntry{
		FromVersion: from,
		ToVersion:   from + 1,
		Name:        name,
		Timestamp:   now,
	})
	l.state = next
	if err := l.flush(); err != nil {
		l.state = prev
		return err
	}
	l.log.Info("schema version incremented", "from", from, "to", from+1, "migration", name)
	return nil
}

// Version is the current schema version.
func (l *Ledger) Version() int { return l.state.Version }

// History returns a copy of the applied-migration entries.
func (l *Ledger) History() []LedgerEntry {
	return append([]LedgerEntry(nil), l.state.Migrations...)
}

// Reset discards all history and returns the ledger to version 0.
func (l *Ledger) Reset() error {
	l.log.Warn("schema ledger reset", "path", l.path)
	return l.init()
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
