package engine

// Direction represents a move direction.
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

// Board holds tile values in row-major order. Zero is an empty cell.
type Board [][]int

// NewBoard allocates an empty rows x cols board.
func NewBoard(rows, cols int) Board {
	board := make(Board, rows)
	for r := range board {
		board[r] = make([]int, cols)
	}
	return board
}

// CloneBoard returns a deep copy of the board.
func CloneBoard(board Board) Board {
	clone := make(Board, len(board))
	for r := range board {
		clone[r] = make([]int, len(board[r]))
		copy(clone[r], board[r])
	}
	return clone
}

// EqualBoards reports whether two boards hold the same values.
func EqualBoards(a, b Board) bool {
	if len(a) != len(b) {
		return false
	}
	for r := range a {
		if !equalRow(a[r], b[r]) {
			return false
		}
	}
	return true
}

func equalRow(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// slideRow slides and merges a single row to the left.
// Each tile merges at most once per move.
// Returns the updated row and the score gained from merges.
func slideRow(row []int) (result []int, score int) {
	result = make([]int, len(row))
	writePos := 0
	merged := false

	for _, val := range row {
		if val == 0 {
			continue
		}

		if writePos > 0 && !merged && result[writePos-1] == val {
			// Merge with previous tile
			result[writePos-1] *= 2
			score += result[writePos-1]
			merged = true
		} else {
			// Move tile
			result[writePos] = val
			writePos++
			merged = false
		}
	}

	return result, score
}

// reverseRow reverses a row.
func reverseRow(row []int) []int {
	result := make([]int, len(row))
	for i := range row {
		result[i] = row[len(row)-1-i]
	}
	return result
}

// SlideLeft slides all tiles left and merges.
// Returns the new board, score gained, and whether the board changed.
func SlideLeft(board Board) (Board, int, bool) {
	newBoard := make(Board, len(board))
	totalScore := 0
	changed := false

	for y := range board {
		newRow, score := slideRow(board[y])
		newBoard[y] = newRow
		totalScore += score

		if !equalRow(board[y], newRow) {
			changed = true
		}
	}

	return newBoard, totalScore, changed
}

// SlideRight slides all tiles right and merges.
func SlideRight(board Board) (Board, int, bool) {
	newBoard := make(Board, len(board))
	totalScore := 0
	changed := false

	for y := range board {
		// Reverse, slide left, reverse back
		newRow, score := slideRow(reverseRow(board[y]))
		newBoard[y] = reverseRow(newRow)
		totalScore += score

		if !equalRow(board[y], newBoard[y]) {
			changed = true
		}
	}

	return newBoard, totalScore, changed
}

// SlideUp slides all tiles up and merges.
func SlideUp(board Board) (Board, int, bool) {
	// Transpose, slide left, transpose back
	slid, score, changed := SlideLeft(transpose(board))
	return transpose(slid), score, changed
}

// SlideDown slides all tiles down and merges.
func SlideDown(board Board) (Board, int, bool) {
	// Transpose, slide right, transpose back
	slid, score, changed := SlideRight(transpose(board))
	return transpose(slid), score, changed
}

// transpose returns the matrix transpose. For an r x c board the result
// is c x r, so it also works for non-square boards.
func transpose(board Board) Board {
	rows := len(board)
	cols := len(board[0])

	result := make(Board, cols)
	for y := range result {
		result[y] = make([]int, rows)
		for x := range board {
			result[y][x] = board[x][y]
		}
	}
	return result
}

// Slide performs a move in the given direction.
// Returns the new board, score gained, and whether the board changed.
func Slide(board Board, dir Direction) (Board, int, bool) {
	switch dir {
	case DirLeft:
		return SlideLeft(board)
	case DirRight:
		return SlideRight(board)
	case DirUp:
		return SlideUp(board)
	case DirDown:
		return SlideDown(board)
	default:
		return board, 0, false
	}
}

// Cell addresses a board position.
type Cell struct {
	Row, Col int
}

// EmptyCells returns coordinates of all empty cells.
func EmptyCells(board Board) []Cell {
	var cells []Cell
	for y := range board {
		for x := range board[y] {
			if board[y][x] == 0 {
				cells = append(cells, Cell{Row: y, Col: x})
			}
		}
	}
	return cells
}

// HasEmptyCell returns true if there's at least one empty cell.
func HasEmptyCell(board Board) bool {
	for y := range board {
		for x := range board[y] {
			if board[y][x] == 0 {
				return true
			}
		}
	}
	return false
}

// HasPossibleMerge returns true if any adjacent tiles can merge.
func HasPossibleMerge(board Board) bool {
	for y := range board {
		for x := range board[y] {
			val := board[y][x]
			// Check right neighbor
			if x < len(board[y])-1 && board[y][x+1] == val {
				return true
			}
			// Check bottom neighbor
			if y < len(board)-1 && board[y+1][x] == val {
				return true
			}
		}
	}
	return false
}

// CanMove returns true if any move is possible.
func CanMove(board Board) bool {
	return HasEmptyCell(board) || HasPossibleMerge(board)
}

// MaxTile returns the maximum tile value on the board.
func MaxTile(board Board) int {
	maxVal := 0
	for y := range board {
		for x := range board[y] {
			if board[y][x] > maxVal {
				maxVal = board[y][x]
			}
		}
	}
	return maxVal
}
