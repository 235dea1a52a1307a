// Package highscore persists the best score across sessions as a single
// fixed-width binary record. Writes replace the whole file atomically,
// so a crash mid-write leaves the previous record intact.
package highscore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
)

// RecordSize is the exact size of a valid record file: one big-endian
// unsigned 64-bit integer.
const RecordSize = 8

// ErrMalformedRecord reports a record file whose content cannot be a
// score. The store treats it as score zero and keeps working.
var ErrMalformedRecord = errors.New("malformed high-score record")

// Store holds the durable best score for one installation.
type Store struct {
	path string
	best int
}

// Open binds a store to the record file at the given path, creating
// parent directories as needed. A missing file means no record yet and
// is not an error. An unreadable or malformed file degrades to score
// zero: the store is still returned, alongside an advisory error the
// caller may log.
func Open(path string) (*Store, error) {
	// Expand ~ to home directory
	if path != "" && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("highscore: cannot expand home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("highscore: cannot create directory %s: %w", dir, err)
	}

	store := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return store, fmt.Errorf("highscore: cannot read record: %w", err)
	}
	if len(data) != RecordSize {
		return store, fmt.Errorf("highscore: record is %d bytes, want %d: %w",
			len(data), RecordSize, ErrMalformedRecord)
	}

	value := binary.BigEndian.Uint64(data)
	if value > math.MaxInt {
		return store, fmt.Errorf("highscore: record value %d out of range: %w",
			value, ErrMalformedRecord)
	}

	store.best = int(value)
	return store, nil
}

// Path returns the record file location after home expansion.
func (s *Store) Path() string { return s.path }

// Best returns the best score known to the store. It reflects the value
// read at Open plus any records this store has written since.
func (s *Store) Best() int { return s.best }

// RecordIfHigher writes the candidate as the new record when it beats
// the current best. It reports whether a new record was written. When
// the write fails the in-memory best is left unchanged, so a later
// attempt with the same score writes again.
func (s *Store) RecordIfHigher(candidate int) (bool, error) {
	if candidate <= s.best {
		return false, nil
	}

	if err := s.write(candidate); err != nil {
		return false, err
	}

	s.best = candidate
	return true, nil
}

// write atomically replaces the record file via a temp file and rename.
func (s *Store) write(value int) error {
	var record [RecordSize]byte
	binary.BigEndian.PutUint64(record[:], uint64(value))

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".highscore-*")
	if err != nil {
		return fmt.Errorf("highscore: cannot create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(record[:]); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("highscore: cannot write record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("highscore: cannot sync record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("highscore: cannot close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("highscore: cannot replace record: %w", err)
	}

	return nil
}
