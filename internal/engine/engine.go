// Package engine implements a single 2048-style game on a configurable
// board: sliding merges, tile spawning, scoring, a one-level undo and a
// versioned snapshot stream.
package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Board dimensions accepted by the constructors and by snapshot decoding.
const (
	MinDim = 2
	MaxDim = 16
)

// Default game parameters.
const (
	DefaultRows              = 4
	DefaultCols              = 4
	DefaultWinningTile       = 2048
	DefaultSpawn4Probability = 0.10
)

var (
	// ErrInvalidDimensions reports board dimensions outside [MinDim, MaxDim].
	ErrInvalidDimensions = errors.New("invalid board dimensions")
	// ErrInvalidOptions reports game options that cannot describe a playable game.
	ErrInvalidOptions = errors.New("invalid game options")
)

// Status describes the game state as seen by a single query.
type Status int

const (
	StatusPlaying Status = iota
	StatusWin
	StatusLost
	StatusWonButUnplayable
)

// String returns the status name used in logs and summaries.
func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusWin:
		return "win"
	case StatusLost:
		return "lost"
	case StatusWonButUnplayable:
		return "won_but_unplayable"
	default:
		return "unknown"
	}
}

// Options tunes a new game. Zero values fall back to the package defaults.
type Options struct {
	// WinningTile is the value that ends the game with a win. Must be a
	// power of two, at least 8.
	WinningTile int
	// Spawn4Probability is the chance that a spawned tile is a 4 instead
	// of a 2. Must be in [0, 1).
	Spawn4Probability float64
	// Seed feeds the spawn RNG. Zero picks a time-based seed.
	Seed int64
}

// Engine is one game in progress.
type Engine struct {
	rows, cols  int
	winningTile int
	spawn4Prob  float64
	rng         *rand.Rand

	board     Board
	score     int
	moveCount int

	// won is sticky once the winning tile appears; winPending marks a
	// crossing that Status has not reported yet.
	won        bool
	winPending bool

	undo *undoState
}

// undoState is the single-level undo snapshot taken before a move.
type undoState struct {
	board      Board
	score      int
	moveCount  int
	won        bool
	winPending bool
}

// New creates a game on a rows x cols board with default rules and two
// starting tiles already spawned.
func New(rows, cols int) (*Engine, error) {
	return NewWithOptions(rows, cols, Options{})
}

// NewWithOptions creates a game with explicit rules.
func NewWithOptions(rows, cols int, opts Options) (*Engine, error) {
	if rows < MinDim || rows > MaxDim || cols < MinDim || cols > MaxDim {
		return nil, fmt.Errorf("engine: %dx%d board: %w", rows, cols, ErrInvalidDimensions)
	}

	winning := opts.WinningTile
	if winning == 0 {
		winning = DefaultWinningTile
	}
	if winning < 8 || !isPowerOfTwo(winning) {
		return nil, fmt.Errorf("engine: winning tile %d: %w", winning, ErrInvalidOptions)
	}

	prob := opts.Spawn4Probability
	if prob == 0 {
		prob = DefaultSpawn4Probability
	}
	if prob < 0 || prob >= 1 {
		return nil, fmt.Errorf("engine: spawn-4 probability %v: %w", prob, ErrInvalidOptions)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		rows:        rows,
		cols:        cols,
		winningTile: winning,
		spawn4Prob:  prob,
		rng:         rand.New(rand.NewSource(seed)),
		board:       NewBoard(rows, cols),
	}

	// Spawn initial tiles (2 tiles)
	e.spawnTile()
	e.spawnTile()

	return e, nil
}

// spawnTile spawns a new tile (2 or 4) in a random empty cell.
func (e *Engine) spawnTile() {
	emptyCells := EmptyCells(e.board)
	if len(emptyCells) == 0 {
		return
	}

	cell := emptyCells[e.rng.Intn(len(emptyCells))]

	value := 2
	if e.rng.Float64() < e.spawn4Prob {
		value = 4
	}

	e.board[cell.Row][cell.Col] = value
}

// Move slides the board in the given direction and reports whether the
// board changed. A changing move replaces the undo snapshot, adds merge
// sums to the score, increments the move counter and spawns exactly one
// tile. A move that changes nothing does none of that.
func (e *Engine) Move(dir Direction) bool {
	newBoard, scoreGained, changed := Slide(e.board, dir)
	if !changed {
		return false
	}

	e.undo = &undoState{
		board:      e.board,
		score:      e.score,
		moveCount:  e.moveCount,
		won:        e.won,
		winPending: e.winPending,
	}

	e.board = newBoard
	e.score += scoreGained
	e.moveCount++
	e.spawnTile()

	if !e.won && MaxTile(e.board) >= e.winningTile {
		e.won = true
		e.winPending = true
	}

	return true
}

// MoveUp slides the board up.
func (e *Engine) MoveUp() bool { return e.Move(DirUp) }

// MoveDown slides the board down.
func (e *Engine) MoveDown() bool { return e.Move(DirDown) }

// MoveLeft slides the board left.
func (e *Engine) MoveLeft() bool { return e.Move(DirLeft) }

// MoveRight slides the board right.
func (e *Engine) MoveRight() bool { return e.Move(DirRight) }

// Undo restores the state from before the most recent successful move,
// including score, move count and win progress. Only one level is kept;
// it reports false when nothing can be undone.
func (e *Engine) Undo() bool {
	if e.undo == nil {
		return false
	}

	e.board = e.undo.board
	e.score = e.undo.score
	e.moveCount = e.undo.moveCount
	e.won = e.undo.won
	e.winPending = e.undo.winPending
	e.undo = nil

	return true
}

// UndoPossible reports whether Undo would succeed.
func (e *Engine) UndoPossible() bool { return e.undo != nil }

// Status reports the current game status. A win is reported exactly once:
// the first call after the winning tile appears returns StatusWin, later
// calls return the steady state. The crossing check runs before the
// no-move check, so a winning move that also fills the board reports
// StatusWin first and StatusWonButUnplayable on the next call. Undo
// restores the earlier win progress, so a repeated crossing reports again.
func (e *Engine) Status() Status {
	if e.winPending {
		e.winPending = false
		return StatusWin
	}
	if !CanMove(e.board) {
		if e.won {
			return StatusWonButUnplayable
		}
		return StatusLost
	}
	return StatusPlaying
}

// Rows returns the board height.
func (e *Engine) Rows() int { return e.rows }

// Cols returns the board width.
func (e *Engine) Cols() int { return e.cols }

// Score returns the accumulated merge score.
func (e *Engine) Score() int { return e.score }

// MoveCount returns the number of successful moves.
func (e *Engine) MoveCount() int { return e.moveCount }

// WinningTile returns the tile value that wins the game.
func (e *Engine) WinningTile() int { return e.winningTile }

// CellValue returns the tile at (row, col), zero for an empty cell.
func (e *Engine) CellValue(row, col int) int { return e.board[row][col] }

// MaxTile returns the highest tile currently on the board.
func (e *Engine) MaxTile() int { return MaxTile(e.board) }

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}
