package game

import "errors"

const (
	Rows = 6
	Cols = 7
)

// Cell owners. Zero means empty.
const (
	Empty     = 0
	PlayerOne = 1
	PlayerTwo = 2
)

var (
	ErrInvalidColumn = errors.New("invalid column")
	ErrColumnFull    = errors.New("column is full")
)

// Board is a 6x7 grid addressed [row][col] with row 0 at the top.
// Discs stack upward from row 5, so a column's occupied cells are always
// contiguous from the bottom.
type Board [Rows][Cols]int

// DropDisc places player's disc in the lowest empty cell of col and
// returns the landing row.
func (b *Board) DropDisc(col, player int) (int, error) {
	if col < 0 || col >= Cols {
		return -1, ErrInvalidColumn
	}
	if b[0][col] != Empty {
		return -1, ErrColumnFull
	}
	for row := Rows - 1; row >= 0; row-- {
		if b[row][col] == Empty {
			b[row][col] = player
			return row, nil
		}
	}
	return -1, ErrColumnFull
}

// IsWinningCell reports whether the disc at (row, col) completes a run of
// four or more. Only the four axes through that cell are scanned, so it is
// meant to be called right after a drop instead of rescanning the board.
func (b *Board) IsWinningCell(row, col int) bool {
	player := b[row][col]
	if player == Empty {
		return false
	}

	// Horizontal
	count := 1
	for c := col - 1; c >= 0 && b[row][c] == player; c-- {
		count++
	}
	for c := col + 1; c < Cols && b[row][c] == player; c++ {
		count++
	}
	if count >= 4 {
		return true
	}

	// Vertical; only cells below matter for a just-dropped disc
	count = 1
	for r := row + 1; r < Rows && b[r][col] == player; r++ {
		count++
	}
	if count >= 4 {
		return true
	}

	// Diagonal top-left to bottom-right
	count = 1
	for i := 1; row-i >= 0 && col-i >= 0 && b[row-i][col-i] == player; i++ {
		count++
	}
	for i := 1; row+i < Rows && col+i < Cols && b[row+i][col+i] == player; i++ {
		count++
	}
	if count >= 4 {
		return true
	}

	// Diagonal bottom-left to top-right
	count = 1
	for i := 1; row+i < Rows && col-i >= 0 && b[row+i][col-i] == player; i++ {
		count++
	}
	for i := 1; row-i >= 0 && col+i < Cols && b[row-i][col+i] == player; i++ {
		count++
	}
	return count >= 4
}

// IsFull reports whether no more discs can be dropped. Checking the top
// row is sufficient because discs stack bottom-up.
func (b *Board) IsFull() bool {
	for col := 0; col < Cols; col++ {
		if b[0][col] == Empty {
			return false
		}
	}
	return true
}

// ValidColumns returns the columns that still have room, ascending.
func (b *Board) ValidColumns() []int {
	cols := make([]int, 0, Cols)
	for col := 0; col < Cols; col++ {
		if b[0][col] == Empty {
			cols = append(cols, col)
		}
	}
	return cols
}

// dropRow returns the row a disc would land in, or -1 if col is full.
func (b *Board) dropRow(col int) int {
	for row := Rows - 1; row >= 0; row-- {
		if b[row][col] == Empty {
			return row
		}
	}
	return -1
}

func opponentOf(player int) int {
	if player == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}
