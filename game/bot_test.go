package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBotTakesImmediateWin(t *testing.T) {
	// Three bot discs stacked in column 2; dropping there wins.
	var b Board
	for row := 3; row < 6; row++ {
		b[row][2] = PlayerTwo
	}

	col, err := NewBot().ChooseColumn(b)
	require.NoError(t, err)
	assert.Equal(t, 2, col)
}

func TestBotWinBeatsCenterPreference(t *testing.T) {
	// The winning column sits far from the center; the bot must still
	// take it over any central drop.
	var b Board
	b[5][3] = PlayerOne
	for row := 3; row < 6; row++ {
		b[row][6] = PlayerTwo
	}

	col, err := NewBot().ChooseColumn(b)
	require.NoError(t, err)
	assert.Equal(t, 6, col)
}

func TestBotBlocksOpponentWin(t *testing.T) {
	// The opponent threatens a vertical four in column 5 and the bot has
	// no win of its own.
	var b Board
	for row := 3; row < 6; row++ {
		b[row][5] = PlayerOne
	}
	b[5][0] = PlayerTwo

	col, err := NewBot().ChooseColumn(b)
	require.NoError(t, err)
	assert.Equal(t, 5, col)
}

func TestBotWinTrumpsBlock(t *testing.T) {
	// Both sides threaten; the bot takes its own win instead of blocking.
	var b Board
	for row := 3; row < 6; row++ {
		b[row][1] = PlayerTwo
		b[row][5] = PlayerOne
	}

	col, err := NewBot().ChooseColumn(b)
	require.NoError(t, err)
	assert.Equal(t, 1, col)
}

func TestBotPrefersCenterOnEmptyBoard(t *testing.T) {
	var b Board

	col, err := NewBot().ChooseColumn(b)
	require.NoError(t, err)
	assert.Equal(t, 3, col)
}

func TestBotFallsBackPastFullCenter(t *testing.T) {
	// Column 3 is full of alternating discs that create no threats, so
	// the positional fallback moves outward to column 2.
	var b Board
	for row := 0; row < Rows; row++ {
		if row%2 == 0 {
			b[row][3] = PlayerOne
		} else {
			b[row][3] = PlayerTwo
		}
	}

	col, err := NewBot().ChooseColumn(b)
	require.NoError(t, err)
	assert.Equal(t, 2, col)
}

func TestBotNoValidMove(t *testing.T) {
	var b Board
	for col := 0; col < Cols; col++ {
		b[0][col] = PlayerOne
	}

	_, err := NewBot().ChooseColumn(b)
	assert.ErrorIs(t, err, ErrNoValidMove)
}

func TestBotDoesNotMutateSnapshot(t *testing.T) {
	var b Board
	for row := 3; row < 6; row++ {
		b[row][2] = PlayerTwo
	}
	before := b

	_, err := NewBot().ChooseColumn(b)
	require.NoError(t, err)
	assert.Equal(t, before, b)
}

func TestThreatWindowRejectsBlockedLines(t *testing.T) {
	// Three bot discs in a row but an opponent disc inside the 7-cell
	// window: no threat on the horizontal axis through (5,1).
	bot := NewBot()
	var b Board
	b[5][0] = PlayerTwo
	b[5][1] = PlayerTwo
	b[5][2] = PlayerTwo
	b[5][4] = PlayerOne

	assert.False(t, bot.hasThreeInWindow(&b, 5, 1, 0, 1))

	// Remove the blocker and the threat appears.
	b[5][4] = Empty
	assert.True(t, bot.hasThreeInWindow(&b, 5, 1, 0, 1))
}
