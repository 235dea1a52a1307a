// Package savegame stores game snapshots as files. A save either fully
// replaces the target file or leaves it untouched; partial files are
// never visible, even across a crash.
package savegame

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dvjones/twenty48/internal/engine"
)

// Snapshotter produces the versioned snapshot stream that Load reads back.
type Snapshotter interface {
	Serialize(w io.Writer) error
}

// ErrNoSaveFile reports a load from a path with no save file.
var ErrNoSaveFile = errors.New("no save file")

// Save writes the game snapshot to path, creating parent directories as
// needed. The snapshot is fully serialized in memory first, then written
// to a temp file and renamed over the target, so a failure at any point
// leaves an existing file byte for byte intact.
func Save(game Snapshotter, path string) error {
	path, err := expandHome(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := game.Serialize(&buf); err != nil {
		return fmt.Errorf("savegame: cannot serialize game: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("savegame: cannot create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".savegame-*")
	if err != nil {
		return fmt.Errorf("savegame: cannot create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("savegame: cannot write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("savegame: cannot sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("savegame: cannot close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("savegame: cannot replace save file: %w", err)
	}

	return nil
}

// Load reads a snapshot file and reconstructs the game from it. A
// missing file reports ErrNoSaveFile; undecodable content reports an
// error wrapping engine.ErrCorruptSnapshot. Either way no game state is
// produced, so the caller's current game stays as it was.
func Load(path string) (*engine.Engine, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("savegame: %s: %w", path, ErrNoSaveFile)
	}
	if err != nil {
		return nil, fmt.Errorf("savegame: cannot open save file: %w", err)
	}
	defer f.Close()

	game, err := engine.FromSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("savegame: %s: %w", path, err)
	}

	return game, nil
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("savegame: cannot expand home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
