package session

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dvjones/twenty48/internal/engine"
	"github.com/dvjones/twenty48/internal/savegame"
)

// Ensure the real engine satisfies the contract the controller drives.
var _ Engine = (*engine.Engine)(nil)

// Options wires the optional collaborators of a session.
type Options struct {
	// HighScores persists the best score. Nil disables persistence.
	HighScores HighScoreKeeper
	// Results records finished sessions. Nil disables the ledger.
	Results ResultSaver
	// Logger receives non-fatal persistence warnings. Nil discards them.
	Logger *log.Logger
}

// Controller runs the session protocol around one engine. All methods
// must be called from a single goroutine; every mutation is triggered
// by one discrete intent or decision.
type Controller struct {
	id      uuid.UUID
	eng     Engine
	scores  HighScoreKeeper
	results ResultSaver
	logger  *log.Logger
	started time.Time

	phase Phase

	// pending is the outstanding decision point, if any. pendingUndoOffer
	// is set only when the most recent move caused a terminal status and
	// the undo negotiation has not concluded.
	pending          *DecisionRequest
	pendingUndoOffer bool

	// outcome is how the session will be classified if the current
	// resolution concludes with a close.
	outcome Outcome
}

// New creates an active session around the given engine.
func New(eng Engine, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	c := &Controller{
		id:      uuid.New(),
		eng:     eng,
		scores:  opts.HighScores,
		results: opts.Results,
		logger:  logger,
		started: time.Now(),
	}
	if eng == nil {
		// No engine, nothing to play. Every operation is a safe no-op.
		c.phase = PhaseClosed
	}
	return c
}

// ID returns the session identity used in the history ledger and logs.
func (c *Controller) ID() uuid.UUID { return c.id }

// Phase returns the lifecycle state.
func (c *Controller) Phase() Phase { return c.phase }

// Pending returns the outstanding decision point, nil if none.
func (c *Controller) Pending() *DecisionRequest { return c.pending }

// AttemptMove forwards a move to the engine and, when the board changed,
// evaluates the resulting status. A move that changes nothing consumes
// no turn and triggers no evaluation. Moves are ignored while a decision
// is outstanding or the session is not active.
func (c *Controller) AttemptMove(dir engine.Direction) MoveResult {
	if c.phase != PhaseActive || c.pending != nil {
		return MoveResult{}
	}
	if !c.eng.Move(dir) {
		return MoveResult{}
	}
	return MoveResult{Moved: true, Decision: c.evaluateAfterMove()}
}

// evaluateAfterMove runs after every state-changing move. A win surfaces
// the continue-or-stop decision; a terminal status marks the move as
// retractable and enters resolution.
func (c *Controller) evaluateAfterMove() *DecisionRequest {
	switch c.eng.Status() {
	case engine.StatusWin:
		c.pending = &DecisionRequest{Kind: DecisionContinueAfterWin}
		return c.pending
	case engine.StatusLost:
		c.pendingUndoOffer = true
		return c.enterResolving(OutcomeLost)
	case engine.StatusWonButUnplayable:
		c.pendingUndoOffer = true
		return c.enterResolving(OutcomeWonUnplayable)
	}
	return nil
}

// AttemptUndo retracts the most recent move during normal play. It is a
// silent no-op when undo is unavailable, a decision is outstanding or
// the session is not active; the undo negotiation at the end of a game
// goes through ResolveUndoOffer instead.
func (c *Controller) AttemptUndo() bool {
	if c.phase != PhaseActive || c.pending != nil {
		return false
	}
	return c.eng.Undo()
}

// RequestClose is the single entry point for any close intent. A running
// game resolves as a voluntary quit. If a decision is outstanding it is
// returned unresolved instead of being skipped: the caller must resolve
// it, and the session closes through that path if the player lets it.
func (c *Controller) RequestClose() *DecisionRequest {
	if c.phase == PhaseClosed {
		return nil
	}
	if c.pending != nil {
		return c.pending
	}
	return c.enterResolving(OutcomeQuit)
}

// ResolveContinueAfterWin resolves the continue-or-stop decision after a
// win. Stopping is a voluntary exit: the session resolves without an
// undo offer. Continuing re-evaluates the status once, because the
// winning move may have also locked the board; in that case the returned
// decision is the undo offer. Calls with no matching decision
// outstanding are no-ops and return whatever is still outstanding.
func (c *Controller) ResolveContinueAfterWin(continuePlaying bool) *DecisionRequest {
	if c.pending == nil || c.pending.Kind != DecisionContinueAfterWin {
		return c.pending
	}
	c.pending = nil

	if !continuePlaying {
		return c.enterResolving(OutcomeWonQuit)
	}

	switch c.eng.Status() {
	case engine.StatusWonButUnplayable:
		c.pendingUndoOffer = true
		return c.enterResolving(OutcomeWonUnplayable)
	default:
		return nil
	}
}

// ResolveUndoOffer resolves the undo negotiation. Accepting retracts the
// move that ended the game and resumes play; declining (or an engine
// with nothing to undo) closes the session. Calls with no undo offer
// outstanding are no-ops.
func (c *Controller) ResolveUndoOffer(acceptUndo bool) {
	if c.phase != PhaseResolving || c.pending == nil || c.pending.Kind != DecisionUndoOffer {
		return
	}
	c.pending = nil
	c.pendingUndoOffer = false

	if acceptUndo && c.eng.Undo() {
		c.phase = PhaseActive
		return
	}
	c.close()
}

// enterResolving runs the fixed-order resolution: persist the high score
// first, then either close (no retractable move) or surface the undo
// offer. The persist always completes before the offer is visible, so a
// declined undo can never lose a record.
func (c *Controller) enterResolving(outcome Outcome) *DecisionRequest {
	c.phase = PhaseResolving
	c.outcome = outcome

	justSet := c.persistHighScore()

	if !c.pendingUndoOffer {
		c.close()
		return nil
	}

	c.pending = &DecisionRequest{Kind: DecisionUndoOffer, HighScoreWasJustSet: justSet}
	return c.pending
}

// persistHighScore records the live score if it beats the durable best.
// Failures degrade to a warning; the session continues either way.
func (c *Controller) persistHighScore() bool {
	if c.scores == nil {
		return false
	}
	set, err := c.scores.RecordIfHigher(c.eng.Score())
	if err != nil {
		c.logger.Warn("cannot persist high score", "score", c.eng.Score(), "err", err)
	}
	return set
}

// close finishes the session and records it in the history ledger.
func (c *Controller) close() {
	c.phase = PhaseClosed
	c.pending = nil
	c.pendingUndoOffer = false

	if c.results == nil {
		return
	}
	result := Result{
		SessionID: c.id,
		Score:     c.eng.Score(),
		Moves:     c.eng.MoveCount(),
		MaxTile:   c.maxTile(),
		Outcome:   c.outcome,
		Duration:  time.Since(c.started),
	}
	if err := c.results.SaveResult(result); err != nil {
		c.logger.Warn("cannot record session result", "session", c.id, "err", err)
	}
}

func (c *Controller) maxTile() int {
	maxVal := 0
	for r := 0; r < c.eng.Rows(); r++ {
		for col := 0; col < c.eng.Cols(); col++ {
			if v := c.eng.CellValue(r, col); v > maxVal {
				maxVal = v
			}
		}
	}
	return maxVal
}

// SaveGame writes the running game to path. It refuses while a decision
// is outstanding and after close; a failed save reports an error and
// changes nothing on disk or in memory.
func (c *Controller) SaveGame(path string) error {
	if c.phase == PhaseClosed {
		return ErrClosed
	}
	if c.pending != nil {
		return ErrDecisionPending
	}
	return savegame.Save(c.eng, path)
}

// LoadGame replaces the running game with the snapshot at path. The
// snapshot is fully reconstructed before anything is swapped, so on any
// failure the current game is untouched.
func (c *Controller) LoadGame(path string) error {
	if c.phase == PhaseClosed {
		return ErrClosed
	}
	if c.pending != nil {
		return ErrDecisionPending
	}

	loaded, err := savegame.Load(path)
	if err != nil {
		return err
	}

	c.eng = loaded
	return nil
}

// Observable returns the render-ready view of the session. The reported
// high score tracks the live score as soon as it beats the durable best,
// matching what a scoreboard should display mid-game.
func (c *Controller) Observable() ObservableState {
	if c.eng == nil {
		return ObservableState{}
	}

	cells := make([][]int, c.eng.Rows())
	for r := range cells {
		cells[r] = make([]int, c.eng.Cols())
		for col := range cells[r] {
			cells[r][col] = c.eng.CellValue(r, col)
		}
	}

	high := c.eng.Score()
	if c.scores != nil && c.scores.Best() > high {
		high = c.scores.Best()
	}

	return ObservableState{
		CellValues:    cells,
		Score:         c.eng.Score(),
		MoveCount:     c.eng.MoveCount(),
		HighScore:     high,
		UndoAvailable: c.eng.UndoPossible(),
	}
}
