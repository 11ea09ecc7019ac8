package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu   sync.Mutex
	msgs []any
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, v)
	return nil
}

func (c *fakeConn) messages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func lastOf[T any](c *fakeConn) (T, bool) {
	var found T
	ok := false
	for _, m := range c.messages() {
		if v, is := m.(T); is {
			found = v
			ok = true
		}
	}
	return found, ok
}

func countOf[T any](c *fakeConn) int {
	n := 0
	for _, m := range c.messages() {
		if _, is := m.(T); is {
			n++
		}
	}
	return n
}

type fakeStore struct {
	mu      sync.Mutex
	results []Result
}

func (s *fakeStore) SaveGame(res Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
	return nil
}

func (s *fakeStore) saved() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

func newTestManager(t *testing.T) (*Manager, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	m := NewManager(store, nil)
	m.botDelay = 5 * time.Millisecond
	m.graceTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go m.Run(ctx)
	return m, store
}

// flush waits for every previously enqueued operation to finish.
func flush(m *Manager) {
	done := make(chan struct{})
	m.ops <- func() { close(done) }
	<-done
}

func startRoomMatch(t *testing.T, m *Manager) (*fakeConn, *fakeConn) {
	t.Helper()
	c1 := &fakeConn{}
	c2 := &fakeConn{}
	m.CreateOrJoinRoom(c1, "u1", "Alice", "ROOM1")
	m.CreateOrJoinRoom(c2, "u2", "Bob", "ROOM1")
	flush(m)
	return c1, c2
}

func TestRoomPairingSendsGameStartToBoth(t *testing.T) {
	m, _ := newTestManager(t)
	c1, c2 := startRoomMatch(t, m)

	created, ok := lastOf[RoomCreatedMsg](c1)
	require.True(t, ok)
	assert.Equal(t, "room1", created.RoomCode, "room codes are normalized")

	start1, ok := lastOf[GameStartMsg](c1)
	require.True(t, ok)
	start2, ok := lastOf[GameStartMsg](c2)
	require.True(t, ok)

	assert.Equal(t, 1, start1.PlayerNumber)
	assert.Equal(t, 2, start2.PlayerNumber)
	assert.Equal(t, "Bob", start1.Opponent)
	assert.Equal(t, "Alice", start2.Opponent)
	assert.Equal(t, start1.GameID, start2.GameID)
	assert.Equal(t, PlayerOne, start1.CurrentTurn)
	assert.Equal(t, Board{}, start1.Board, "a fresh match starts from an empty board")

	assert.Equal(t, 2, m.ActivePlayers())
}

func TestThirdPlayerCannotJoinRoom(t *testing.T) {
	m, _ := newTestManager(t)
	startRoomMatch(t, m)

	c3 := &fakeConn{}
	m.CreateOrJoinRoom(c3, "u3", "Carol", "ROOM1")
	flush(m)

	errMsg, ok := lastOf[ErrorMsg](c3)
	require.True(t, ok)
	assert.Equal(t, "Room is full or invalid", errMsg.Message)
}

func TestFirstMoveLandsAtBottomRowAndBroadcasts(t *testing.T) {
	m, _ := newTestManager(t)
	c1, c2 := startRoomMatch(t, m)

	m.HandleMove(c1, "u1", 3)
	flush(m)

	for _, c := range []*fakeConn{c1, c2} {
		update, ok := lastOf[GameUpdateMsg](c)
		require.True(t, ok)
		assert.Equal(t, PlayerOne, update.Board[5][3])
		assert.Equal(t, PlayerTwo, update.CurrentTurn)
	}
}

func TestMoveOutOfTurnIsRejected(t *testing.T) {
	m, _ := newTestManager(t)
	c1, c2 := startRoomMatch(t, m)

	m.HandleMove(c2, "u2", 3)
	flush(m)

	errMsg, ok := lastOf[ErrorMsg](c2)
	require.True(t, ok)
	assert.Equal(t, "Not your turn", errMsg.Message)
	assert.Zero(t, countOf[GameUpdateMsg](c1), "a rejected move is not broadcast")
}

func TestMoveWithNoLiveMatchIsDropped(t *testing.T) {
	m, store := newTestManager(t)

	c := &fakeConn{}
	m.HandleMove(c, "ghost", 3)
	flush(m)

	assert.Empty(t, c.messages())
	assert.Empty(t, store.saved())
}

func TestWinningMoveSettlesAndPersistsOnce(t *testing.T) {
	m, store := newTestManager(t)
	c1, c2 := startRoomMatch(t, m)

	// Alice stacks column 0, Bob column 6; Alice's fourth disc wins.
	for i := 0; i < 3; i++ {
		m.HandleMove(c1, "u1", 0)
		m.HandleMove(c2, "u2", 6)
	}
	m.HandleMove(c1, "u1", 0)
	flush(m)

	over1, ok := lastOf[GameOverMsg](c1)
	require.True(t, ok)
	over2, ok := lastOf[GameOverMsg](c2)
	require.True(t, ok)
	assert.Equal(t, 1, over1.Winner)
	assert.Equal(t, "You win!", over1.Message)
	assert.Equal(t, "You lose!", over2.Message)

	results := store.saved()
	require.Len(t, results, 1)
	assert.Equal(t, "u1", results[0].WinnerID)
	assert.Equal(t, "Alice", results[0].WinnerUsername)
	assert.Equal(t, "u2", results[0].Player2ID)
	assert.False(t, results[0].IsBotGame)
	assert.Equal(t, "room1", results[0].RoomCode)

	assert.Equal(t, 0, m.ActivePlayers(), "settled matches leave the registry")
}

func TestBotGameStartsImmediatelyAndBotReplies(t *testing.T) {
	m, _ := newTestManager(t)
	c1 := &fakeConn{}

	m.PlayBot(c1, "u1", "Alice")
	flush(m)

	start, ok := lastOf[GameStartMsg](c1)
	require.True(t, ok)
	assert.True(t, start.IsBot)
	assert.Equal(t, "Bot", start.Opponent)
	assert.Equal(t, 1, start.PlayerNumber)

	m.HandleMove(c1, "u1", 3)

	require.Eventually(t, func() bool {
		return countOf[GameUpdateMsg](c1) >= 2
	}, time.Second, 5*time.Millisecond, "bot move should be broadcast after the pacing delay")

	var updates []GameUpdateMsg
	for _, msg := range c1.messages() {
		if u, ok := msg.(GameUpdateMsg); ok {
			updates = append(updates, u)
		}
	}
	// The human move is broadcast before the bot reply.
	assert.Equal(t, PlayerTwo, updates[0].CurrentTurn)
	assert.Equal(t, PlayerOne, updates[0].Board[5][3])
	assert.Equal(t, PlayerOne, updates[1].CurrentTurn, "turn returns to the human after the bot move")
}

func TestDisconnectExpiryForfeitsMatch(t *testing.T) {
	m, store := newTestManager(t)
	c1, _ := startRoomMatch(t, m)

	m.HandleDisconnect("u2")
	flush(m)

	require.Eventually(t, func() bool {
		return countOf[GameOverMsg](c1) == 1
	}, time.Second, 5*time.Millisecond)

	disc, ok := lastOf[OpponentDisconnectedMsg](c1)
	require.True(t, ok)
	assert.Contains(t, disc.Message, "forfeit")

	over, _ := lastOf[GameOverMsg](c1)
	assert.Equal(t, 1, over.Winner)
	assert.Equal(t, "You win!", over.Message)

	results := store.saved()
	require.Len(t, results, 1)
	assert.Equal(t, "u1", results[0].WinnerID)
}

func TestReconnectWithinGraceCancelsForfeit(t *testing.T) {
	m, store := newTestManager(t)
	c1, _ := startRoomMatch(t, m)
	m.HandleMove(c1, "u1", 3)
	flush(m)

	m.HandleDisconnect("u2")
	flush(m)

	// Bob comes back through the implicit path before the grace expires.
	c2b := &fakeConn{}
	m.CreateOrJoinRoom(c2b, "u2", "Bob", "ROOM1")
	flush(m)

	start, ok := lastOf[GameStartMsg](c2b)
	require.True(t, ok)
	assert.Equal(t, 2, start.PlayerNumber)
	assert.Equal(t, PlayerOne, start.Board[5][3], "reconnection replays the current board")
	assert.Equal(t, PlayerTwo, start.CurrentTurn)

	time.Sleep(3 * m.graceTimeout)
	flush(m)

	assert.Zero(t, countOf[GameOverMsg](c1), "cancelled grace timer must not forfeit")
	assert.Empty(t, store.saved())
	assert.Equal(t, 2, m.ActivePlayers())
}

func TestExplicitRejoinRestoresState(t *testing.T) {
	m, _ := newTestManager(t)
	c1, c2 := startRoomMatch(t, m)
	start, _ := lastOf[GameStartMsg](c2)

	m.HandleMove(c1, "u1", 2)
	flush(m)

	m.HandleDisconnect("u2")
	flush(m)

	c2b := &fakeConn{}
	m.Rejoin(c2b, "u2", start.GameID)
	flush(m)

	rejoined, ok := lastOf[GameRejoinedMsg](c2b)
	require.True(t, ok)
	assert.Equal(t, 2, rejoined.PlayerNumber)
	assert.Equal(t, "Alice", rejoined.Opponent)
	assert.Equal(t, PlayerOne, rejoined.Board[5][2])
	assert.Equal(t, PlayerTwo, rejoined.CurrentTurn)
}

func TestRejoinAfterExpiryFindsNoMatch(t *testing.T) {
	m, _ := newTestManager(t)
	c1, c2 := startRoomMatch(t, m)
	start, _ := lastOf[GameStartMsg](c2)

	m.HandleDisconnect("u2")
	flush(m)

	require.Eventually(t, func() bool {
		return countOf[GameOverMsg](c1) == 1
	}, time.Second, 5*time.Millisecond)

	c2b := &fakeConn{}
	m.Rejoin(c2b, "u2", start.GameID)
	flush(m)

	errMsg, ok := lastOf[ErrorMsg](c2b)
	require.True(t, ok)
	assert.Equal(t, "No game to rejoin", errMsg.Message)
}

func TestForfeitTimerAndWinningMoveSettleOnce(t *testing.T) {
	m, store := newTestManager(t)
	c1, c2 := startRoomMatch(t, m)

	// Bring Alice one disc short of a vertical four.
	for i := 0; i < 3; i++ {
		m.HandleMove(c1, "u1", 0)
		m.HandleMove(c2, "u2", 6)
	}
	flush(m)

	// Bob drops; Alice wins while the grace timer is pending.
	m.HandleDisconnect("u2")
	m.HandleMove(c1, "u1", 0)
	flush(m)

	time.Sleep(3 * m.graceTimeout)
	flush(m)

	require.Len(t, store.saved(), 1, "settlement must be exactly-once")
	assert.Equal(t, "Alice", store.saved()[0].WinnerUsername)
	assert.Equal(t, 1, countOf[GameOverMsg](c1))
	assert.Equal(t, 1, countOf[GameOverMsg](c2))
	assert.Zero(t, countOf[OpponentDisconnectedMsg](c1), "the late timer continuation is a no-op")
}

func TestBotGameForfeitWhenHumanStaysAway(t *testing.T) {
	m, store := newTestManager(t)
	c1 := &fakeConn{}
	m.PlayBot(c1, "u1", "Alice")
	flush(m)

	m.HandleDisconnect("u1")
	flush(m)

	require.Eventually(t, func() bool {
		return len(store.saved()) == 1
	}, time.Second, 5*time.Millisecond)

	res := store.saved()[0]
	assert.Equal(t, "Bot", res.WinnerUsername)
	assert.Empty(t, res.WinnerID)
	assert.True(t, res.IsBotGame)
}

func TestSweepClosesStalePendingRoom(t *testing.T) {
	m, store := newTestManager(t)
	c1 := &fakeConn{}
	m.CreateOrJoinRoom(c1, "u1", "Alice", "LONELY")
	flush(m)

	// Backdate the pending match, then sweep.
	m.enqueue(func() {
		for _, match := range m.matches {
			match.StartedAt = time.Now().Add(-time.Hour)
		}
	})
	m.SweepPendingRooms(30 * time.Minute)
	flush(m)

	errMsg, ok := lastOf[ErrorMsg](c1)
	require.True(t, ok)
	assert.Contains(t, errMsg.Message, "expired")
	assert.Equal(t, 0, m.ActivePlayers())
	assert.Empty(t, store.saved(), "a swept pending room is not a settled game")

	// The code is free again.
	c2 := &fakeConn{}
	m.CreateOrJoinRoom(c2, "u2", "Bob", "LONELY")
	flush(m)
	_, ok = lastOf[RoomCreatedMsg](c2)
	assert.True(t, ok)
}
