// Package session owns the lifecycle of one game: turn sequencing, the
// win and game-over decision points, the undo negotiation, high-score
// persistence ordering and save/load. It is deliberately free of any
// rendering concern: callers feed it intents and decisions, it returns
// structured outcomes.
package session

import (
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/dvjones/twenty48/internal/engine"
)

var (
	// ErrClosed reports an operation on a session that already closed.
	ErrClosed = errors.New("session is closed")
	// ErrDecisionPending reports an operation that must wait until the
	// outstanding decision is resolved.
	ErrDecisionPending = errors.New("decision pending")
)

// Phase is the lifecycle state of a session.
type Phase int

const (
	// PhaseActive accepts moves, undo, save and load.
	PhaseActive Phase = iota
	// PhaseResolving holds the end-of-session protocol: the high score
	// is already persisted and an undo offer is outstanding.
	PhaseResolving
	// PhaseClosed is terminal. A new session must be created to play on.
	PhaseClosed
)

// String returns the phase name used in logs.
func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseResolving:
		return "resolving"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DecisionKind identifies a decision point surfaced to the caller.
type DecisionKind int

const (
	// DecisionContinueAfterWin asks whether to keep playing after the
	// winning tile was reached. Resolve with ResolveContinueAfterWin.
	DecisionContinueAfterWin DecisionKind = iota
	// DecisionUndoOffer asks whether to retract the move that ended the
	// game. Resolve with ResolveUndoOffer.
	DecisionUndoOffer
)

// DecisionRequest is an outstanding decision point. While one is
// outstanding the session accepts no moves, saves or loads; resolving
// it twice is a no-op.
type DecisionRequest struct {
	Kind DecisionKind

	// HighScoreWasJustSet is meaningful on DecisionUndoOffer: it tells
	// whether entering the resolution persisted a new high score, which
	// happened before this offer was surfaced.
	HighScoreWasJustSet bool
}

// Outcome classifies how a session ended.
type Outcome string

const (
	// OutcomeLost is a game over with the winning tile never reached.
	OutcomeLost Outcome = "lost"
	// OutcomeWonUnplayable is a game over after the win was reached and
	// play continued until the board locked.
	OutcomeWonUnplayable Outcome = "won_unplayable"
	// OutcomeQuit is a voluntary close of a running game.
	OutcomeQuit Outcome = "quit"
	// OutcomeWonQuit is a stop right after the winning tile was reached.
	OutcomeWonQuit Outcome = "won_quit"
)

// MoveResult reports what a move attempt did. Decision is non-nil when
// the move surfaced a decision point that must be resolved before play
// can continue.
type MoveResult struct {
	Moved    bool
	Decision *DecisionRequest
}

// ObservableState is the render-ready view of a session.
type ObservableState struct {
	CellValues    [][]int
	Score         int
	MoveCount     int
	HighScore     int
	UndoAvailable bool
}

// Engine is the board mechanics contract the controller drives. It is
// satisfied by *engine.Engine; tests substitute scripted fakes.
type Engine interface {
	Move(dir engine.Direction) bool
	Undo() bool
	UndoPossible() bool
	Score() int
	MoveCount() int
	Rows() int
	Cols() int
	CellValue(row, col int) int
	Status() engine.Status
	Serialize(w io.Writer) error
}

// HighScoreKeeper persists the best score across sessions.
type HighScoreKeeper interface {
	// Best returns the best score known so far.
	Best() int
	// RecordIfHigher durably records the candidate when it beats the
	// best, reporting whether a new record was written.
	RecordIfHigher(candidate int) (bool, error)
}

// Result describes a finished session for the history ledger.
type Result struct {
	SessionID uuid.UUID
	Score     int
	Moves     int
	MaxTile   int
	Outcome   Outcome
	Duration  time.Duration
}

// ResultSaver records finished sessions. It is called at most once per
// session, when the session closes.
type ResultSaver interface {
	SaveResult(Result) error
}
