package engine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"
)

// Snapshot stream layout, big endian: magic, format version, dimensions,
// rules, status flags, score, move count, cell values, then the undo
// snapshot when one is present. RNG state is not part of the stream; a
// restored engine reseeds, so spawn sequences diverge after a reload.

const snapshotVersion uint16 = 1

var snapshotMagic = [4]byte{'T', '4', '8', 'G'}

const (
	flagWon uint8 = 1 << iota
	flagWinPending
	flagHasUndo
)

// ErrCorruptSnapshot reports a snapshot stream that cannot describe a
// valid game: wrong magic, unknown version, truncation or values outside
// the game's domain.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Serialize writes the complete game state to w in the versioned snapshot
// format. The stream restores board, score, move count, win progress and
// the undo snapshot; it deliberately excludes RNG state.
func (e *Engine) Serialize(w io.Writer) error {
	sw := &streamWriter{w: w}

	sw.write(snapshotMagic)
	sw.write(snapshotVersion)
	sw.write(uint8(e.rows))
	sw.write(uint8(e.cols))
	sw.write(uint32(e.winningTile))
	sw.write(math.Float64bits(e.spawn4Prob))

	flags := statusFlags(e.won, e.winPending)
	if e.undo != nil {
		flags |= flagHasUndo
	}
	sw.write(flags)
	sw.write(uint64(e.score))
	sw.write(uint64(e.moveCount))
	writeCells(sw, e.board)

	if e.undo != nil {
		sw.write(statusFlags(e.undo.won, e.undo.winPending))
		sw.write(uint64(e.undo.score))
		sw.write(uint64(e.undo.moveCount))
		writeCells(sw, e.undo.board)
	}

	if sw.err != nil {
		return fmt.Errorf("engine: cannot serialize game: %w", sw.err)
	}
	return nil
}

// FromSnapshot reconstructs a game from a stream produced by Serialize.
// Undecodable streams return an error wrapping ErrCorruptSnapshot.
func FromSnapshot(r io.Reader) (*Engine, error) {
	sr := &streamReader{r: r}

	var magic [4]byte
	var version uint16
	sr.read(&magic)
	sr.read(&version)
	if err := sr.fail(); err != nil {
		return nil, err
	}
	if magic != snapshotMagic {
		return nil, fmt.Errorf("engine: bad snapshot magic %q: %w", magic[:], ErrCorruptSnapshot)
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("engine: unsupported snapshot version %d: %w", version, ErrCorruptSnapshot)
	}

	var rows, cols uint8
	var winning uint32
	var probBits uint64
	var flags uint8
	var score, moveCount uint64
	sr.read(&rows)
	sr.read(&cols)
	sr.read(&winning)
	sr.read(&probBits)
	sr.read(&flags)
	sr.read(&score)
	sr.read(&moveCount)
	if err := sr.fail(); err != nil {
		return nil, err
	}

	if rows < MinDim || rows > MaxDim || cols < MinDim || cols > MaxDim {
		return nil, fmt.Errorf("engine: snapshot board %dx%d: %w", rows, cols, ErrCorruptSnapshot)
	}
	if winning < 8 || !isPowerOfTwo(int(winning)) {
		return nil, fmt.Errorf("engine: snapshot winning tile %d: %w", winning, ErrCorruptSnapshot)
	}
	prob := math.Float64frombits(probBits)
	if math.IsNaN(prob) || prob < 0 || prob >= 1 {
		return nil, fmt.Errorf("engine: snapshot spawn-4 probability %v: %w", prob, ErrCorruptSnapshot)
	}
	if score > math.MaxInt || moveCount > math.MaxInt {
		return nil, fmt.Errorf("engine: snapshot counters out of range: %w", ErrCorruptSnapshot)
	}

	board, err := readCells(sr, int(rows), int(cols))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		rows:        int(rows),
		cols:        int(cols),
		winningTile: int(winning),
		spawn4Prob:  prob,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		board:       board,
		score:       int(score),
		moveCount:   int(moveCount),
		won:         flags&flagWon != 0,
		winPending:  flags&flagWinPending != 0,
	}

	if flags&flagHasUndo != 0 {
		var undoFlags uint8
		var undoScore, undoMoves uint64
		sr.read(&undoFlags)
		sr.read(&undoScore)
		sr.read(&undoMoves)
		if err := sr.fail(); err != nil {
			return nil, err
		}
		if undoScore > math.MaxInt || undoMoves > math.MaxInt {
			return nil, fmt.Errorf("engine: snapshot undo counters out of range: %w", ErrCorruptSnapshot)
		}
		undoBoard, err := readCells(sr, int(rows), int(cols))
		if err != nil {
			return nil, err
		}
		e.undo = &undoState{
			board:      undoBoard,
			score:      int(undoScore),
			moveCount:  int(undoMoves),
			won:        undoFlags&flagWon != 0,
			winPending: undoFlags&flagWinPending != 0,
		}
	}

	return e, nil
}

func statusFlags(won, winPending bool) uint8 {
	var flags uint8
	if won {
		flags |= flagWon
	}
	if winPending {
		flags |= flagWinPending
	}
	return flags
}

func writeCells(sw *streamWriter, board Board) {
	for _, row := range board {
		for _, val := range row {
			sw.write(uint32(val))
		}
	}
}

func readCells(sr *streamReader, rows, cols int) (Board, error) {
	board := NewBoard(rows, cols)
	for y := range board {
		for x := range board[y] {
			var val uint32
			sr.read(&val)
			if err := sr.fail(); err != nil {
				return nil, err
			}
			if val != 0 && (val < 2 || val&(val-1) != 0) {
				return nil, fmt.Errorf("engine: snapshot cell value %d: %w", val, ErrCorruptSnapshot)
			}
			board[y][x] = int(val)
		}
	}
	return board, nil
}

// streamWriter batches binary writes, keeping the first error.
type streamWriter struct {
	w   io.Writer
	err error
}

func (sw *streamWriter) write(v any) {
	if sw.err != nil {
		return
	}
	sw.err = binary.Write(sw.w, binary.BigEndian, v)
}

// streamReader batches binary reads, keeping the first error.
type streamReader struct {
	r   io.Reader
	err error
}

func (sr *streamReader) read(v any) {
	if sr.err != nil {
		return
	}
	sr.err = binary.Read(sr.r, binary.BigEndian, v)
}

// fail maps stream truncation to ErrCorruptSnapshot and returns other
// read failures as-is.
func (sr *streamReader) fail() error {
	if sr.err == nil {
		return nil
	}
	if errors.Is(sr.err, io.EOF) || errors.Is(sr.err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("engine: truncated snapshot: %w", ErrCorruptSnapshot)
	}
	return fmt.Errorf("engine: cannot read snapshot: %w", sr.err)
}
