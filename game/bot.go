package game

import (
	"errors"
	"math/rand"
)

var ErrNoValidMove = errors.New("no valid move available")

// centerPreference orders candidate columns center-out; the middle column
// touches the most potential lines.
var centerPreference = [Cols]int{3, 2, 4, 1, 5, 0, 6}

// Bot picks columns for the automated opponent. ChooseColumn receives the
// board by value, so all of its hypothetical drops happen on a private
// snapshot and the live match state is never touched.
type Bot struct {
	Player   int
	Opponent int
}

func NewBot() *Bot {
	return &Bot{Player: PlayerTwo, Opponent: PlayerOne}
}

// ChooseColumn runs the decision ladder: take an immediate win, block the
// opponent's immediate win, drop where a threat appears (center columns
// first), otherwise take the most central open column. The random pick at
// the end only triggers if the preference scan somehow yields nothing.
func (bot *Bot) ChooseColumn(board Board) (int, error) {
	if col := bot.findWinningMove(&board, bot.Player); col != -1 {
		return col, nil
	}
	if col := bot.findWinningMove(&board, bot.Opponent); col != -1 {
		return col, nil
	}
	if col := bot.findStrategicMove(&board); col != -1 {
		return col, nil
	}

	valid := board.ValidColumns()
	if len(valid) == 0 {
		return -1, ErrNoValidMove
	}
	return valid[rand.Intn(len(valid))], nil
}

// findWinningMove scans columns in ascending order and returns the first
// one where dropping player's disc completes four in a row, or -1.
func (bot *Bot) findWinningMove(b *Board, player int) int {
	for col := 0; col < Cols; col++ {
		row := b.dropRow(col)
		if row == -1 {
			continue
		}
		b[row][col] = player
		win := b.IsWinningCell(row, col)
		b[row][col] = Empty
		if win {
			return col
		}
	}
	return -1
}

// findStrategicMove returns the first center-out column whose drop creates
// at least one threat, else the first open center-out column, else -1.
func (bot *Bot) findStrategicMove(b *Board) int {
	for _, col := range centerPreference {
		row := b.dropRow(col)
		if row == -1 {
			continue
		}
		b[row][col] = bot.Player
		threats := bot.countThreats(b)
		b[row][col] = Empty
		if threats > 0 {
			return col
		}
	}

	for _, col := range centerPreference {
		if b.dropRow(col) != -1 {
			return col
		}
	}
	return -1
}

// countThreats counts near-complete lines for the bot: for every bot disc
// and each of the four axes, a 7-cell window centered on that disc that
// holds exactly three bot discs, at least one empty cell and no opponent
// disc. The window is a local approximation, not an exhaustive scan of
// every 4-cell span.
func (bot *Bot) countThreats(b *Board) int {
	threats := 0
	dirs := [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			if b[row][col] != bot.Player {
				continue
			}
			for _, d := range dirs {
				if bot.hasThreeInWindow(b, row, col, d[0], d[1]) {
					threats++
				}
			}
		}
	}
	return threats
}

func (bot *Bot) hasThreeInWindow(b *Board, row, col, dRow, dCol int) bool {
	count := 0
	empty := 0
	for i := -3; i <= 3; i++ {
		r := row + i*dRow
		c := col + i*dCol
		if r < 0 || r >= Rows || c < 0 || c >= Cols {
			continue
		}
		switch b[r][c] {
		case bot.Player:
			count++
		case Empty:
			empty++
		default:
			return false
		}
	}
	return count == 3 && empty >= 1
}
