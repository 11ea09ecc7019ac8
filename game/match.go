package game

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MatchState tracks a session through its lifecycle.
type MatchState int

const (
	StatePendingOpponent MatchState = iota
	StateInProgress
	StateSettled
)

var (
	ErrNotYourTurn  = errors.New("not your turn")
	ErrRoomFull     = errors.New("room is full or invalid")
	ErrMatchPending = errors.New("match is waiting for an opponent")
)

// Party occupies one of the two player slots of a match. Immutable once
// joined.
type Party struct {
	UserID   string // empty for the bot
	Username string
	IsBot    bool
}

// Conn is the transport attachment for a human party. The gateway's client
// satisfies it; tests use fakes. Implementations must tolerate concurrent
// writers.
type Conn interface {
	WriteJSON(v any) error
}

// Match is one game session from pairing to settlement. It is owned by the
// Manager; nothing outside the manager goroutine touches it after creation.
type Match struct {
	ID        string
	Player1   *Party
	Player2   *Party // nil until an opponent joins
	Board     Board
	Turn      int
	StartedAt time.Time
	RoomCode  string
	Moves     []int

	Conn1 Conn
	Conn2 Conn

	bot   *Bot
	state MatchState
}

// NewMatch creates a session for player1, starting immediately when an
// opponent (human or bot) is supplied and waiting in the pending state
// otherwise.
func NewMatch(player1, player2 *Party, roomCode string) *Match {
	m := &Match{
		ID:        uuid.NewString(),
		Player1:   player1,
		Player2:   player2,
		Turn:      PlayerOne,
		StartedAt: time.Now(),
		RoomCode:  roomCode,
		state:     StatePendingOpponent,
	}
	if player2 != nil {
		m.state = StateInProgress
		if player2.IsBot {
			m.bot = NewBot()
		}
	}
	return m
}

func (m *Match) State() MatchState { return m.state }

func (m *Match) Bot() *Bot { return m.bot }

// IsBotGame reports whether the second slot is the automated opponent.
func (m *Match) IsBotGame() bool {
	return m.Player2 != nil && m.Player2.IsBot
}

// Join attaches the second party and starts the match.
func (m *Match) Join(player2 *Party) error {
	if m.Player2 != nil {
		return ErrRoomFull
	}
	m.Player2 = player2
	m.state = StateInProgress
	return nil
}

// PlayerNumberOf returns 1 or 2 for a seated identity, 0 otherwise.
func (m *Match) PlayerNumberOf(userID string) int {
	if m.Player1 != nil && m.Player1.UserID == userID {
		return PlayerOne
	}
	if m.Player2 != nil && !m.Player2.IsBot && m.Player2.UserID == userID {
		return PlayerTwo
	}
	return 0
}

// MoveResult describes the effect of a successfully applied move.
type MoveResult struct {
	Row      int
	Column   int
	GameOver bool
	Winner   int // PlayerOne, PlayerTwo, or 0 for a draw
}

// MakeMove drops the current player's disc into col. Structural failures
// leave the board and turn owner untouched. On a non-terminal move the turn
// flips; on a win or a full board the match moves to the settled state.
func (m *Match) MakeMove(col int) (MoveResult, error) {
	if m.state != StateInProgress {
		return MoveResult{}, ErrMatchPending
	}

	row, err := m.Board.DropDisc(col, m.Turn)
	if err != nil {
		return MoveResult{}, err
	}
	m.Moves = append(m.Moves, col)

	res := MoveResult{Row: row, Column: col}
	if m.Board.IsWinningCell(row, col) {
		res.GameOver = true
		res.Winner = m.Turn
		m.state = StateSettled
		return res, nil
	}
	if m.Board.IsFull() {
		res.GameOver = true
		m.state = StateSettled
		return res, nil
	}

	m.Turn = opponentOf(m.Turn)
	return res, nil
}
