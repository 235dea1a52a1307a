package session

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dvjones/twenty48/internal/engine"
	"github.com/dvjones/twenty48/internal/savegame"
)

var allDirections = []engine.Direction{
	engine.DirLeft, engine.DirUp, engine.DirRight, engine.DirDown,
}

// playedSession returns an active session over a real engine with a few
// moves already made.
func playedSession(t *testing.T) *Controller {
	t.Helper()

	eng, err := engine.NewWithOptions(4, 4, engine.Options{Seed: 7})
	if err != nil {
		t.Fatalf("NewWithOptions() failed: %v", err)
	}
	c := New(eng, Options{})

	moved := 0
	for moved < 5 {
		for _, dir := range allDirections {
			if c.AttemptMove(dir).Moved {
				moved++
				break
			}
		}
	}
	return c
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.dat")

	c := playedSession(t)
	before := c.Observable()

	if err := c.SaveGame(path); err != nil {
		t.Fatalf("SaveGame() failed: %v", err)
	}

	// Keep playing past the save point
	for _, dir := range allDirections {
		if c.AttemptMove(dir).Moved {
			break
		}
	}

	if err := c.LoadGame(path); err != nil {
		t.Fatalf("LoadGame() failed: %v", err)
	}

	after := c.Observable()
	if !reflect.DeepEqual(after.CellValues, before.CellValues) {
		t.Errorf("Board not restored:\nsaved %v\ngot   %v", before.CellValues, after.CellValues)
	}
	if after.Score != before.Score || after.MoveCount != before.MoveCount {
		t.Errorf("Counters not restored: saved score=%d moves=%d, got score=%d moves=%d",
			before.Score, before.MoveCount, after.Score, after.MoveCount)
	}

	// The restored game keeps playing
	moved := false
	for _, dir := range allDirections {
		if c.AttemptMove(dir).Moved {
			moved = true
			break
		}
	}
	if !moved {
		t.Error("Expected the restored game to accept moves")
	}
}

func TestLoadIntoAnotherSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.dat")

	first := playedSession(t)
	saved := first.Observable()
	if err := first.SaveGame(path); err != nil {
		t.Fatalf("SaveGame() failed: %v", err)
	}

	fresh, err := engine.NewWithOptions(4, 4, engine.Options{Seed: 99})
	if err != nil {
		t.Fatalf("NewWithOptions() failed: %v", err)
	}
	second := New(fresh, Options{})

	if err := second.LoadGame(path); err != nil {
		t.Fatalf("LoadGame() failed: %v", err)
	}

	got := second.Observable()
	if !reflect.DeepEqual(got.CellValues, saved.CellValues) || got.Score != saved.Score {
		t.Errorf("Loaded session does not match the save:\nsaved %+v\ngot   %+v", saved, got)
	}
}

func TestSaveLoadRefusedWhileDecisionPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.dat")

	eng := newFakeEngine()
	eng.statuses = []engine.Status{engine.StatusWin}
	c := New(eng, Options{})
	c.AttemptMove(engine.DirLeft)

	if err := c.SaveGame(path); !errors.Is(err, ErrDecisionPending) {
		t.Errorf("Expected ErrDecisionPending from SaveGame, got %v", err)
	}
	if err := c.LoadGame(path); !errors.Is(err, ErrDecisionPending) {
		t.Errorf("Expected ErrDecisionPending from LoadGame, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Refused save must not touch the disk")
	}
}

func TestSaveLoadRefusedAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.dat")

	c := New(newFakeEngine(), Options{})
	c.RequestClose()

	if err := c.SaveGame(path); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from SaveGame, got %v", err)
	}
	if err := c.LoadGame(path); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from LoadGame, got %v", err)
	}
}

func TestFailedLoadLeavesSessionUntouched(t *testing.T) {
	dir := t.TempDir()

	c := playedSession(t)
	before := c.Observable()

	missing := filepath.Join(dir, "nothing.dat")
	if err := c.LoadGame(missing); !errors.Is(err, savegame.ErrNoSaveFile) {
		t.Errorf("Expected ErrNoSaveFile, got %v", err)
	}

	corrupt := filepath.Join(dir, "corrupt.dat")
	if err := os.WriteFile(corrupt, []byte("not a snapshot"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if err := c.LoadGame(corrupt); !errors.Is(err, engine.ErrCorruptSnapshot) {
		t.Errorf("Expected ErrCorruptSnapshot, got %v", err)
	}

	after := c.Observable()
	if !reflect.DeepEqual(after.CellValues, before.CellValues) || after.Score != before.Score {
		t.Errorf("Failed loads must not change the session:\nbefore %+v\nafter  %+v", before, after)
	}
	if c.Phase() != PhaseActive {
		t.Errorf("Expected the session to stay active, got %v", c.Phase())
	}
}
