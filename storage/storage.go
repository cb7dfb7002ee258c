// Package storage persists an opaque blob to a single named file using a
// write-ahead log and an atomic rename, so the file on disk is always either
// the prior or the new complete content, never a partial write.
package storage

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Store owns one target file and its WAL sibling inside a storage folder.
type Store struct {
	fs      afero.Fs
	folder  string
	path    string
	walPath string
	log     *slog.Logger
}

// NewStore creates the storage folder if needed and returns a Store for
// <folder>/<filename>, with the WAL staged at <filename>.wal alongside it.
func NewStore(fs afero.Fs, folder, filename string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := fs.MkdirAll(folder, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage folder")
	}
	path := filepath.Join(folder, filename)
	return &Store{
		fs:      fs,
		folder:  folder,
		path:    path,
		walPath: path + ".wal",
		log:     log,
	}, nil
}

// Path is the target file path.
func (s *Store) Path() string { return s.path }

// Exists reports whether the target file is present.
func (s *Store) Exists() bool {
	ok, _ := afero.Exists(s.fs, s.path)
	return ok
}

// Read returns the file content. An absent file is not an error: it reads
// as nil.
func (s *Store) Read() ([]byte, error) {
	b, err := afero.ReadFile(s.fs, s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading store file")
	}
	return b, nil
}

// Write commits content atomically:
//
//  1. stage the full content in the WAL file,
//  2. write it to a fresh temp file in the same directory (same
//     filesystem, so the rename below stays atomic),
//  3. rename the temp file over the target — the durability commit point,
//  4. drop the WAL.
//
// If anything fails before the rename completes, the temp file is removed
// and the prior target content and the WAL are left untouched.
func (s *Store) Write(content []byte) error {
	if err := afero.WriteFile(s.fs, s.walPath, content, 0o644); err != nil {
		return errors.Wrap(err, "staging WAL")
	}

	tmp, err := afero.TempFile(s.fs, s.folder, ".tmp_*.json")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()

	if _, err = tmp.Write(content); err != nil {
		tmp.Close()
	} else {
		err = tmp.Close()
	}
	if err == nil {
		err = s.fs.Rename(tmpName, s.path)
	}
	if err != nil {
		if rmErr := s.fs.Remove(tmpName); rmErr != nil && !os.IsNotExist(rmErr) {
			s.log.Warn("failed to remove temp file", "path", tmpName, "err", rmErr)
		}
		return errors.Wrap(err, "writing store file")
	}

	s.removeWAL()
	return nil
}

// HasWAL reports whether a staged WAL exists — at startup this means the
// previous write was interrupted.
func (s *Store) HasWAL() bool {
	ok, _ := afero.Exists(s.fs, s.walPath)
	return ok
}

// RecoverFromWAL copies staged WAL content over the target file and drops
// the WAL, reporting whether recovery ran. The copy is not atomic; this
// path runs only at startup before any reader exists. If reading or
// writing fails, the WAL is kept for manual inspection and false is
// returned.
func (s *Store) RecoverFromWAL() bool {
	if !s.HasWAL() {
		return false
	}
	content, err := afero.ReadFile(s.fs, s.walPath)
	if err != nil {
		s.log.Error("WAL recovery: reading staged content failed", "path", s.walPath, "err", err)
		return false
	}
	if err := afero.WriteFile(s.fs, s.path, content, 0o644); err != nil {
		s.log.Error("WAL recovery: writing target failed", "path", s.path, "err", err)
		return false
	}
	s.removeWAL()
	return true
}

func (s *Store) removeWAL() {
	if err := s.fs.Remove(s.walPath); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to remove WAL", "path", s.walPath, "err", err)
	}
}
