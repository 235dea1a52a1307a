package session

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/dvjones/twenty48/internal/engine"
	"github.com/dvjones/twenty48/internal/highscore"
)

// fakeEngine is a scripted stand-in for the real engine: Move succeeds
// unless told otherwise and Status consumes a queue of scripted values,
// defaulting to StatusPlaying when the queue is empty.
type fakeEngine struct {
	moveOK   bool
	undoOK   bool
	statuses []engine.Status

	score int
	moves int
	board [][]int

	moveCalls   int
	undoCalls   int
	statusCalls int

	serializeErr error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		moveOK: true,
		board:  [][]int{{2, 4}, {0, 16}},
	}
}

func (f *fakeEngine) Move(engine.Direction) bool {
	f.moveCalls++
	if f.moveOK {
		f.moves++
	}
	return f.moveOK
}

func (f *fakeEngine) Undo() bool {
	f.undoCalls++
	if f.undoOK && f.moves > 0 {
		f.moves--
	}
	return f.undoOK
}

func (f *fakeEngine) UndoPossible() bool { return f.undoOK }
func (f *fakeEngine) Score() int         { return f.score }
func (f *fakeEngine) MoveCount() int     { return f.moves }
func (f *fakeEngine) Rows() int          { return len(f.board) }
func (f *fakeEngine) Cols() int          { return len(f.board[0]) }

func (f *fakeEngine) CellValue(row, col int) int { return f.board[row][col] }

func (f *fakeEngine) Status() engine.Status {
	f.statusCalls++
	if len(f.statuses) == 0 {
		return engine.StatusPlaying
	}
	s := f.statuses[0]
	f.statuses = f.statuses[1:]
	return s
}

func (f *fakeEngine) Serialize(io.Writer) error { return f.serializeErr }

var _ Engine = (*fakeEngine)(nil)

// fakeScores is an in-memory HighScoreKeeper recording every write.
type fakeScores struct {
	best     int
	recorded []int
	err      error
}

func (s *fakeScores) Best() int { return s.best }

func (s *fakeScores) RecordIfHigher(candidate int) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if candidate <= s.best {
		return false, nil
	}
	s.best = candidate
	s.recorded = append(s.recorded, candidate)
	return true, nil
}

// fakeResults is an in-memory ResultSaver.
type fakeResults struct {
	saved []Result
	err   error
}

func (r *fakeResults) SaveResult(res Result) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, res)
	return nil
}

func TestNewSessionIsActive(t *testing.T) {
	c := New(newFakeEngine(), Options{})

	if c.Phase() != PhaseActive {
		t.Errorf("Expected PhaseActive, got %v", c.Phase())
	}
	if c.Pending() != nil {
		t.Errorf("Expected no pending decision, got %+v", c.Pending())
	}
	if c.ID() == uuid.Nil {
		t.Error("Expected a session ID")
	}
}

func TestNewSessionWithoutEngineIsClosed(t *testing.T) {
	c := New(nil, Options{})

	if c.Phase() != PhaseClosed {
		t.Errorf("Expected PhaseClosed, got %v", c.Phase())
	}
	if res := c.AttemptMove(engine.DirLeft); res.Moved || res.Decision != nil {
		t.Errorf("Expected moves to be ignored, got %+v", res)
	}
	if obs := c.Observable(); obs.CellValues != nil || obs.Score != 0 {
		t.Errorf("Expected zero observable state, got %+v", obs)
	}
}

func TestMoveForwardsToEngine(t *testing.T) {
	eng := newFakeEngine()
	c := New(eng, Options{})

	res := c.AttemptMove(engine.DirLeft)
	if !res.Moved {
		t.Error("Expected move to succeed")
	}
	if res.Decision != nil {
		t.Errorf("Expected no decision, got %+v", res.Decision)
	}
	if eng.moveCalls != 1 {
		t.Errorf("Expected 1 engine move, got %d", eng.moveCalls)
	}
	if eng.statusCalls != 1 {
		t.Errorf("Expected 1 status evaluation, got %d", eng.statusCalls)
	}
}

func TestRejectedMoveTriggersNoEvaluation(t *testing.T) {
	eng := newFakeEngine()
	eng.moveOK = false
	c := New(eng, Options{})

	res := c.AttemptMove(engine.DirLeft)
	if res.Moved || res.Decision != nil {
		t.Errorf("Expected zero result for rejected move, got %+v", res)
	}
	if eng.statusCalls != 0 {
		t.Errorf("Rejected move must not evaluate status, got %d calls", eng.statusCalls)
	}
	if c.Phase() != PhaseActive {
		t.Errorf("Expected session to stay active, got %v", c.Phase())
	}
}

func TestGameOverOffersUndoThenDeclineCloses(t *testing.T) {
	eng := newFakeEngine()
	eng.score = 120
	eng.statuses = []engine.Status{engine.StatusLost}
	scores := &fakeScores{}
	results := &fakeResults{}
	c := New(eng, Options{HighScores: scores, Results: results})

	res := c.AttemptMove(engine.DirLeft)
	if !res.Moved {
		t.Fatal("Expected move to succeed")
	}
	if res.Decision == nil || res.Decision.Kind != DecisionUndoOffer {
		t.Fatalf("Expected undo offer, got %+v", res.Decision)
	}
	if c.Phase() != PhaseResolving {
		t.Errorf("Expected PhaseResolving, got %v", c.Phase())
	}

	// The record was written before the offer surfaced
	if len(scores.recorded) != 1 || scores.recorded[0] != 120 {
		t.Errorf("Expected score 120 persisted before the offer, got %v", scores.recorded)
	}
	if !res.Decision.HighScoreWasJustSet {
		t.Error("Expected the offer to report the new record")
	}
	if len(results.saved) != 0 {
		t.Errorf("Session must not be recorded while the offer is open, got %v", results.saved)
	}

	c.ResolveUndoOffer(false)

	if c.Phase() != PhaseClosed {
		t.Errorf("Expected PhaseClosed after decline, got %v", c.Phase())
	}
	if len(results.saved) != 1 {
		t.Fatalf("Expected 1 recorded session, got %d", len(results.saved))
	}
	got := results.saved[0]
	if got.SessionID != c.ID() {
		t.Errorf("Expected session ID %s, got %s", c.ID(), got.SessionID)
	}
	if got.Outcome != OutcomeLost {
		t.Errorf("Expected outcome %q, got %q", OutcomeLost, got.Outcome)
	}
	if got.Score != 120 || got.Moves != 1 || got.MaxTile != 16 {
		t.Errorf("Result fields wrong: %+v", got)
	}
	if got.Duration < 0 {
		t.Errorf("Expected non-negative duration, got %v", got.Duration)
	}
}

func TestGameOverUndoAcceptedResumesPlay(t *testing.T) {
	eng := newFakeEngine()
	eng.undoOK = true
	eng.statuses = []engine.Status{engine.StatusLost}
	results := &fakeResults{}
	c := New(eng, Options{Results: results})

	res := c.AttemptMove(engine.DirLeft)
	if res.Decision == nil || res.Decision.Kind != DecisionUndoOffer {
		t.Fatalf("Expected undo offer, got %+v", res.Decision)
	}

	c.ResolveUndoOffer(true)

	if eng.undoCalls != 1 {
		t.Errorf("Expected 1 engine undo, got %d", eng.undoCalls)
	}
	if c.Phase() != PhaseActive {
		t.Errorf("Expected play to resume, got %v", c.Phase())
	}
	if c.Pending() != nil {
		t.Errorf("Expected no pending decision, got %+v", c.Pending())
	}
	if len(results.saved) != 0 {
		t.Errorf("Resumed session must not be recorded, got %v", results.saved)
	}

	// Play continues normally
	if res := c.AttemptMove(engine.DirRight); !res.Moved {
		t.Error("Expected moves to work after the undo")
	}
}

func TestUndoOfferWithNothingToRetractCloses(t *testing.T) {
	eng := newFakeEngine()
	eng.undoOK = false
	eng.statuses = []engine.Status{engine.StatusLost}
	results := &fakeResults{}
	c := New(eng, Options{Results: results})

	c.AttemptMove(engine.DirLeft)
	c.ResolveUndoOffer(true)

	if c.Phase() != PhaseClosed {
		t.Errorf("Expected close when the engine has nothing to undo, got %v", c.Phase())
	}
	if len(results.saved) != 1 || results.saved[0].Outcome != OutcomeLost {
		t.Errorf("Expected one lost session recorded, got %v", results.saved)
	}
}

func TestMovesAndUndoBlockedWhileDecisionPending(t *testing.T) {
	eng := newFakeEngine()
	eng.undoOK = true
	eng.statuses = []engine.Status{engine.StatusWin}
	c := New(eng, Options{})

	if res := c.AttemptMove(engine.DirLeft); res.Decision == nil {
		t.Fatal("Expected a win decision")
	}

	if res := c.AttemptMove(engine.DirRight); res.Moved || res.Decision != nil {
		t.Errorf("Expected move to be ignored, got %+v", res)
	}
	if eng.moveCalls != 1 {
		t.Errorf("Expected the engine to see only the first move, got %d", eng.moveCalls)
	}
	if c.AttemptUndo() {
		t.Error("Expected undo to be ignored while the decision is open")
	}
	if eng.undoCalls != 0 {
		t.Errorf("Expected no engine undo, got %d", eng.undoCalls)
	}
}

func TestWinThenContinuePlaying(t *testing.T) {
	eng := newFakeEngine()
	eng.statuses = []engine.Status{engine.StatusWin}
	scores := &fakeScores{}
	c := New(eng, Options{HighScores: scores})

	res := c.AttemptMove(engine.DirLeft)
	if res.Decision == nil || res.Decision.Kind != DecisionContinueAfterWin {
		t.Fatalf("Expected continue-after-win decision, got %+v", res.Decision)
	}
	if c.Phase() != PhaseActive {
		t.Errorf("Win decision must not leave the active phase, got %v", c.Phase())
	}
	if len(scores.recorded) != 0 {
		t.Errorf("No resolution entered yet, nothing to persist, got %v", scores.recorded)
	}

	if next := c.ResolveContinueAfterWin(true); next != nil {
		t.Errorf("Expected no follow-up decision, got %+v", next)
	}
	if c.Phase() != PhaseActive || c.Pending() != nil {
		t.Errorf("Expected play to continue, got phase %v pending %+v", c.Phase(), c.Pending())
	}
	if res := c.AttemptMove(engine.DirRight); !res.Moved {
		t.Error("Expected moves to work after continuing")
	}
}

func TestWinThenStopClosesWithoutUndoOffer(t *testing.T) {
	eng := newFakeEngine()
	eng.score = 300
	eng.undoOK = true
	eng.statuses = []engine.Status{engine.StatusWin}
	scores := &fakeScores{}
	results := &fakeResults{}
	c := New(eng, Options{HighScores: scores, Results: results})

	c.AttemptMove(engine.DirLeft)

	if next := c.ResolveContinueAfterWin(false); next != nil {
		t.Errorf("A voluntary stop gets no undo offer, got %+v", next)
	}
	if c.Phase() != PhaseClosed {
		t.Errorf("Expected PhaseClosed, got %v", c.Phase())
	}
	if eng.undoCalls != 0 {
		t.Errorf("Expected no engine undo on a voluntary stop, got %d", eng.undoCalls)
	}
	if len(scores.recorded) != 1 || scores.recorded[0] != 300 {
		t.Errorf("Expected score 300 persisted on stop, got %v", scores.recorded)
	}
	if len(results.saved) != 1 || results.saved[0].Outcome != OutcomeWonQuit {
		t.Errorf("Expected one won-quit session recorded, got %v", results.saved)
	}
}

func TestWinningMoveThatLocksBoardOffersUndo(t *testing.T) {
	eng := newFakeEngine()
	eng.statuses = []engine.Status{engine.StatusWin, engine.StatusWonButUnplayable}
	results := &fakeResults{}
	c := New(eng, Options{Results: results})

	res := c.AttemptMove(engine.DirLeft)
	if res.Decision == nil || res.Decision.Kind != DecisionContinueAfterWin {
		t.Fatalf("Expected continue-after-win decision first, got %+v", res.Decision)
	}

	next := c.ResolveContinueAfterWin(true)
	if next == nil || next.Kind != DecisionUndoOffer {
		t.Fatalf("Expected the locked board to surface an undo offer, got %+v", next)
	}
	if c.Phase() != PhaseResolving {
		t.Errorf("Expected PhaseResolving, got %v", c.Phase())
	}

	c.ResolveUndoOffer(false)

	if c.Phase() != PhaseClosed {
		t.Errorf("Expected PhaseClosed, got %v", c.Phase())
	}
	if len(results.saved) != 1 || results.saved[0].Outcome != OutcomeWonUnplayable {
		t.Errorf("Expected one won-unplayable session recorded, got %v", results.saved)
	}
}

func TestRequestCloseOnRunningGame(t *testing.T) {
	eng := newFakeEngine()
	eng.score = 120
	eng.undoOK = true
	scores := &fakeScores{best: 50}
	results := &fakeResults{}
	c := New(eng, Options{HighScores: scores, Results: results})

	c.AttemptMove(engine.DirLeft)

	if dec := c.RequestClose(); dec != nil {
		t.Errorf("A voluntary quit gets no decision, got %+v", dec)
	}
	if c.Phase() != PhaseClosed {
		t.Errorf("Expected PhaseClosed, got %v", c.Phase())
	}
	if eng.undoCalls != 0 {
		t.Errorf("Expected no undo negotiation on quit, got %d engine undos", eng.undoCalls)
	}
	if scores.best != 120 {
		t.Errorf("Expected the quit to persist score 120, got best %d", scores.best)
	}
	if len(results.saved) != 1 || results.saved[0].Outcome != OutcomeQuit {
		t.Errorf("Expected one quit session recorded, got %v", results.saved)
	}
}

func TestRequestCloseReturnsOutstandingDecision(t *testing.T) {
	eng := newFakeEngine()
	eng.statuses = []engine.Status{engine.StatusWin}
	results := &fakeResults{}
	c := New(eng, Options{Results: results})

	c.AttemptMove(engine.DirLeft)

	dec := c.RequestClose()
	if dec == nil || dec.Kind != DecisionContinueAfterWin {
		t.Fatalf("Expected the open decision back, got %+v", dec)
	}
	if c.Phase() != PhaseActive {
		t.Errorf("Close request must not skip the decision, got %v", c.Phase())
	}
	if len(results.saved) != 0 {
		t.Errorf("Session must not close around an open decision, got %v", results.saved)
	}

	// The session closes through the decision itself
	c.ResolveContinueAfterWin(false)
	if c.Phase() != PhaseClosed {
		t.Errorf("Expected PhaseClosed, got %v", c.Phase())
	}

	if dec := c.RequestClose(); dec != nil {
		t.Errorf("Expected nil on a closed session, got %+v", dec)
	}
	if len(results.saved) != 1 {
		t.Errorf("Expected exactly one recorded session, got %d", len(results.saved))
	}
}

func TestResolutionsAreIdempotent(t *testing.T) {
	eng := newFakeEngine()
	eng.undoOK = true
	eng.statuses = []engine.Status{engine.StatusLost}
	results := &fakeResults{}
	c := New(eng, Options{Results: results})

	res := c.AttemptMove(engine.DirLeft)

	// Wrong resolver: the open offer is returned untouched
	if dec := c.ResolveContinueAfterWin(true); dec != res.Decision {
		t.Errorf("Expected the open undo offer back, got %+v", dec)
	}
	if c.Phase() != PhaseResolving {
		t.Errorf("Mismatched resolution must not advance the session, got %v", c.Phase())
	}

	c.ResolveUndoOffer(false)
	c.ResolveUndoOffer(true)

	if eng.undoCalls != 0 {
		t.Errorf("Repeated resolution must not undo, got %d engine undos", eng.undoCalls)
	}
	if len(results.saved) != 1 {
		t.Errorf("Expected exactly one recorded session, got %d", len(results.saved))
	}
}

func TestOfferReportsWhenRecordNotBeaten(t *testing.T) {
	eng := newFakeEngine()
	eng.score = 120
	eng.statuses = []engine.Status{engine.StatusLost}
	scores := &fakeScores{best: 500}
	c := New(eng, Options{HighScores: scores})

	res := c.AttemptMove(engine.DirLeft)
	if res.Decision == nil || res.Decision.HighScoreWasJustSet {
		t.Errorf("Expected offer without a new record, got %+v", res.Decision)
	}
	if len(scores.recorded) != 0 {
		t.Errorf("Expected no record written, got %v", scores.recorded)
	}
}

func TestPersistenceFailuresDoNotBlockTheSession(t *testing.T) {
	eng := newFakeEngine()
	eng.score = 120
	eng.statuses = []engine.Status{engine.StatusLost}
	scores := &fakeScores{err: errors.New("disk full")}
	results := &fakeResults{err: errors.New("db locked")}
	c := New(eng, Options{HighScores: scores, Results: results})

	res := c.AttemptMove(engine.DirLeft)
	if res.Decision == nil || res.Decision.Kind != DecisionUndoOffer {
		t.Fatalf("Expected the offer despite the failed persist, got %+v", res.Decision)
	}
	if res.Decision.HighScoreWasJustSet {
		t.Error("A failed persist must not claim a new record")
	}

	c.ResolveUndoOffer(false)

	if c.Phase() != PhaseClosed {
		t.Errorf("Expected close despite the failed result save, got %v", c.Phase())
	}
}

func TestObservableState(t *testing.T) {
	eng := newFakeEngine()
	eng.score = 80
	eng.moves = 7
	eng.undoOK = true
	scores := &fakeScores{best: 200}
	c := New(eng, Options{HighScores: scores})

	obs := c.Observable()

	if obs.Score != 80 || obs.MoveCount != 7 || !obs.UndoAvailable {
		t.Errorf("Observable fields wrong: %+v", obs)
	}
	if obs.HighScore != 200 {
		t.Errorf("Expected durable best 200 shown, got %d", obs.HighScore)
	}
	if len(obs.CellValues) != 2 || obs.CellValues[1][1] != 16 {
		t.Errorf("Cell values wrong: %v", obs.CellValues)
	}

	// The copy is detached from the engine
	obs.CellValues[0][0] = 9999
	if again := c.Observable(); again.CellValues[0][0] == 9999 {
		t.Error("Observable cells must be a copy")
	}

	// A live score above the durable best is shown as the high score
	eng.score = 250
	if again := c.Observable(); again.HighScore != 250 {
		t.Errorf("Expected live score 250 shown as high score, got %d", again.HighScore)
	}
}

func TestGameOverPersistsRecordBeforeOfferIsResolved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "highscore.dat")

	store, err := highscore.Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := store.RecordIfHigher(40); err != nil {
		t.Fatalf("RecordIfHigher() failed: %v", err)
	}

	eng := newFakeEngine()
	eng.score = 44
	eng.undoOK = true
	eng.statuses = []engine.Status{engine.StatusLost}
	c := New(eng, Options{HighScores: store})

	res := c.AttemptMove(engine.DirLeft)
	if res.Decision == nil || !res.Decision.HighScoreWasJustSet {
		t.Fatalf("Expected offer reporting the new record, got %+v", res.Decision)
	}

	// The record is already durable while the offer is still open
	reopened, err := highscore.Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if reopened.Best() != 44 {
		t.Errorf("Expected durable best 44 before resolution, got %d", reopened.Best())
	}

	// Declining the undo keeps the record
	c.ResolveUndoOffer(false)
	if store.Best() != 44 {
		t.Errorf("Expected best 44 after decline, got %d", store.Best())
	}
}
