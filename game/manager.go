package game

import (
	"context"
	"log"
	"time"

	"github.com/gosimple/slug"
)

const (
	defaultGraceTimeout = 30 * time.Second
	defaultBotDelay     = 500 * time.Millisecond
)

// disconnectRecord tracks one identity that dropped its connection while
// seated in a live match. At most one exists per identity.
type disconnectRecord struct {
	matchID        string
	disconnectedAt time.Time
	timer          *time.Timer
}

// Manager owns every live match: the room table, the identity index and the
// disconnect grace timers. All state is mutated on a single goroutine that
// drains the ops channel; public methods and timer callbacks only enqueue
// closures, so handlers run to completion one at a time and the
// reconnect-vs-forfeit and forfeit-vs-winning-move races resolve
// deterministically.
type Manager struct {
	matches      map[string]*Match
	rooms        map[string]string // room code → match id
	playerMatch  map[string]string // user id → match id
	disconnected map[string]*disconnectRecord

	ops      chan func()
	store    Store
	archiver Archiver

	graceTimeout time.Duration
	botDelay     time.Duration
}

func NewManager(store Store, archiver Archiver) *Manager {
	return &Manager{
		matches:      make(map[string]*Match),
		rooms:        make(map[string]string),
		playerMatch:  make(map[string]string),
		disconnected: make(map[string]*disconnectRecord),
		ops:          make(chan func(), 256),
		store:        store,
		archiver:     archiver,
		graceTimeout: defaultGraceTimeout,
		botDelay:     defaultBotDelay,
	}
}

// Run drains the operation queue until ctx is cancelled. Must be running
// before any public method is called.
func (m *Manager) Run(ctx context.Context) {
	log.Println("🎮 Game manager started")
	for {
		select {
		case op := <-m.ops:
			op()
		case <-ctx.Done():
			log.Println("⏹️ Game manager stopped")
			return
		}
	}
}

func (m *Manager) enqueue(op func()) {
	m.ops <- op
}

// ActivePlayers returns how many identities are currently seated in a live
// match.
func (m *Manager) ActivePlayers() int {
	reply := make(chan int, 1)
	m.enqueue(func() { reply <- len(m.playerMatch) })
	return <-reply
}

// CreateOrJoinRoom seats userID in the room identified by roomCode:
// reattaching if they already have a live match, joining as the second
// party if the room is pending, or creating a fresh pending room.
func (m *Manager) CreateOrJoinRoom(conn Conn, userID, username, roomCode string) {
	m.enqueue(func() { m.doCreateOrJoinRoom(conn, userID, username, roomCode) })
}

// PlayBot starts a match against the automated opponent, or reattaches if
// userID already has a live match.
func (m *Manager) PlayBot(conn Conn, userID, username string) {
	m.enqueue(func() { m.doPlayBot(conn, userID, username) })
}

// HandleMove applies a column drop for userID's live match.
func (m *Manager) HandleMove(conn Conn, userID string, column int) {
	m.enqueue(func() { m.doMove(conn, userID, column) })
}

// HandleDisconnect arms the forfeit grace timer for userID if they are
// seated in a live match.
func (m *Manager) HandleDisconnect(userID string) {
	m.enqueue(func() { m.doDisconnect(userID) })
}

// Rejoin rebinds conn to userID's slot in matchID after a disconnect.
func (m *Manager) Rejoin(conn Conn, userID, matchID string) {
	m.enqueue(func() { m.doRejoin(conn, userID, matchID) })
}

// SweepPendingRooms closes rooms that have waited for an opponent longer
// than maxAge.
func (m *Manager) SweepPendingRooms(maxAge time.Duration) {
	m.enqueue(func() { m.doSweepPendingRooms(maxAge) })
}

func (m *Manager) doCreateOrJoinRoom(conn Conn, userID, username, roomCode string) {
	if m.reattach(conn, userID) {
		return
	}

	code := slug.Make(roomCode)
	if code == "" {
		m.sendTo(conn, errorMsg("Room code required"))
		return
	}

	if matchID, ok := m.rooms[code]; ok {
		match := m.matches[matchID]
		if match == nil || match.Player2 != nil {
			m.sendTo(conn, errorMsg("Room is full or invalid"))
			return
		}
		if err := match.Join(&Party{UserID: userID, Username: username}); err != nil {
			m.sendTo(conn, errorMsg("Room is full or invalid"))
			return
		}
		match.Conn2 = conn
		m.playerMatch[userID] = matchID
		m.startGame(match)
		return
	}

	match := NewMatch(&Party{UserID: userID, Username: username}, nil, code)
	match.Conn1 = conn
	m.matches[match.ID] = match
	m.rooms[code] = match.ID
	m.playerMatch[userID] = match.ID

	m.sendTo(conn, RoomCreatedMsg{
		Type:     "roomCreated",
		RoomCode: code,
		GameID:   match.ID,
		Message:  "Room created! Share this code with your friend.",
	})
	log.Printf("✅ Room created: %s by %s", code, username)
}

func (m *Manager) doPlayBot(conn Conn, userID, username string) {
	if m.reattach(conn, userID) {
		return
	}

	player1 := &Party{UserID: userID, Username: username}
	player2 := &Party{Username: "Bot", IsBot: true}
	match := NewMatch(player1, player2, "")
	match.Conn1 = conn
	m.matches[match.ID] = match
	m.playerMatch[userID] = match.ID

	log.Printf("🤖 Bot game created: %s for %s", match.ID, username)
	m.startGame(match)
}

// reattach handles the implicit reconnection path: any room or bot request
// from an identity that still has a live match rebinds the connection and
// replays the current state instead of starting something new.
func (m *Manager) reattach(conn Conn, userID string) bool {
	matchID, ok := m.playerMatch[userID]
	if !ok {
		return false
	}
	match := m.matches[matchID]
	if match == nil {
		return false
	}

	log.Printf("🔄 Player reconnected within grace window: %s", userID)
	m.clearDisconnect(userID)

	switch match.PlayerNumberOf(userID) {
	case PlayerOne:
		match.Conn1 = conn
		opponent := "Waiting..."
		if match.Player2 != nil {
			opponent = match.Player2.Username
		}
		m.sendTo(conn, GameStartMsg{
			Type:         "gameStart",
			GameID:       match.ID,
			PlayerNumber: PlayerOne,
			Opponent:     opponent,
			Board:        match.Board,
			CurrentTurn:  match.Turn,
			RoomCode:     match.RoomCode,
			IsBot:        match.IsBotGame(),
		})
	case PlayerTwo:
		match.Conn2 = conn
		m.sendTo(conn, GameStartMsg{
			Type:         "gameStart",
			GameID:       match.ID,
			PlayerNumber: PlayerTwo,
			Opponent:     match.Player1.Username,
			Board:        match.Board,
			CurrentTurn:  match.Turn,
			RoomCode:     match.RoomCode,
		})
	}
	return true
}

// clearDisconnect cancels any pending grace timer for userID. Safe to call
// when none exists. If the timer already fired, its continuation finds the
// record gone and becomes a no-op.
func (m *Manager) clearDisconnect(userID string) {
	rec, ok := m.disconnected[userID]
	if !ok {
		return
	}
	rec.timer.Stop()
	delete(m.disconnected, userID)
	log.Printf("✅ Disconnection timer cancelled for %s", userID)
}

func (m *Manager) startGame(match *Match) {
	m.sendTo(match.Conn1, GameStartMsg{
		Type:         "gameStart",
		GameID:       match.ID,
		PlayerNumber: PlayerOne,
		Opponent:     match.Player2.Username,
		Board:        match.Board,
		CurrentTurn:  match.Turn,
		RoomCode:     match.RoomCode,
		IsBot:        match.IsBotGame(),
	})

	if !match.IsBotGame() {
		m.sendTo(match.Conn2, GameStartMsg{
			Type:         "gameStart",
			GameID:       match.ID,
			PlayerNumber: PlayerTwo,
			Opponent:     match.Player1.Username,
			Board:        match.Board,
			CurrentTurn:  match.Turn,
			RoomCode:     match.RoomCode,
		})
	}

	log.Printf("🎮 Game started: %s (%s vs %s)", match.ID,
		match.Player1.Username, match.Player2.Username)
}

func (m *Manager) doMove(conn Conn, userID string, column int) {
	matchID, ok := m.playerMatch[userID]
	if !ok {
		log.Printf("⚠️ Move attempt with no live match: %s", userID)
		return
	}
	match := m.matches[matchID]
	if match == nil {
		log.Printf("⚠️ Move attempt for missing match: %s", matchID)
		return
	}

	playerNumber := match.PlayerNumberOf(userID)
	if match.Turn != playerNumber {
		m.sendTo(conn, errorMsg(moveErrorMessage(ErrNotYourTurn)))
		return
	}

	res, err := match.MakeMove(column)
	if err != nil {
		m.sendTo(conn, errorMsg(moveErrorMessage(err)))
		return
	}

	// Both parties see the human move before any bot reply is scheduled.
	m.broadcastState(match)

	if res.GameOver {
		m.settle(match, res.Winner)
		return
	}

	if match.IsBotGame() && match.Turn == PlayerTwo {
		m.scheduleBotMove(match.ID)
	}
}

func moveErrorMessage(err error) string {
	switch err {
	case ErrNotYourTurn:
		return "Not your turn"
	case ErrInvalidColumn:
		return "Invalid column"
	case ErrColumnFull:
		return "Column is full"
	case ErrMatchPending:
		return "Waiting for an opponent"
	}
	return "Move rejected"
}

// scheduleBotMove delays the bot's reply so a human opponent perceives a
// thinking interval, then re-enters the manager as an ordinary operation.
func (m *Manager) scheduleBotMove(matchID string) {
	time.AfterFunc(m.botDelay, func() {
		m.enqueue(func() { m.doBotMove(matchID) })
	})
}

func (m *Manager) doBotMove(matchID string) {
	match := m.matches[matchID]
	if match == nil {
		// Settled while the delay was pending (forfeit or sweep).
		return
	}
	if !match.IsBotGame() || match.Turn != PlayerTwo || match.State() != StateInProgress {
		return
	}

	column, err := match.Bot().ChooseColumn(match.Board)
	if err != nil {
		log.Printf("❌ Bot has no move for match %s: %v", matchID, err)
		return
	}

	res, err := match.MakeMove(column)
	if err != nil {
		// The bot skips this cycle rather than corrupting state.
		log.Printf("❌ Bot move rejected for match %s (column %d): %v", matchID, column, err)
		return
	}

	log.Printf("🤖 Bot played column %d in match %s", column, matchID)
	m.broadcastState(match)

	if res.GameOver {
		m.settle(match, res.Winner)
	}
}

func (m *Manager) doDisconnect(userID string) {
	matchID, ok := m.playerMatch[userID]
	if !ok {
		return
	}
	if _, exists := m.disconnected[userID]; exists {
		return
	}
	if m.matches[matchID] == nil {
		return
	}

	log.Printf("⚠️ Player disconnected: %s (grace %s)", userID, m.graceTimeout)
	m.disconnected[userID] = &disconnectRecord{
		matchID:        matchID,
		disconnectedAt: time.Now(),
		timer: time.AfterFunc(m.graceTimeout, func() {
			m.enqueue(func() { m.doForfeit(userID) })
		}),
	}
}

// doForfeit runs when the grace timer expires. A reconnect that won the
// race already removed the record, making this a no-op.
func (m *Manager) doForfeit(userID string) {
	rec, ok := m.disconnected[userID]
	if !ok {
		return
	}
	delete(m.disconnected, userID)

	match := m.matches[rec.matchID]
	if match == nil || m.playerMatch[userID] != rec.matchID {
		return
	}

	if match.State() == StatePendingOpponent {
		// Nobody to award a forfeit to; just release the room.
		log.Printf("🧹 Pending room abandoned by %s, closing %s", userID, match.ID)
		m.removeMatch(match)
		return
	}

	log.Printf("❌ Player forfeit after grace timeout: %s", userID)
	loser := match.PlayerNumberOf(userID)
	winner := opponentOf(loser)

	other := match.Conn1
	if loser == PlayerOne {
		other = match.Conn2
	}
	m.sendTo(other, OpponentDisconnectedMsg{
		Type:    "opponentDisconnected",
		Message: "Opponent disconnected. You win by forfeit!",
	})

	m.settle(match, winner)
}

func (m *Manager) doRejoin(conn Conn, userID, matchID string) {
	if _, ok := m.disconnected[userID]; !ok {
		m.sendTo(conn, errorMsg("No game to rejoin"))
		return
	}

	match := m.matches[matchID]
	if match == nil {
		m.sendTo(conn, errorMsg("Game not found"))
		return
	}

	m.clearDisconnect(userID)

	playerNumber := match.PlayerNumberOf(userID)
	opponent := "Unknown"
	switch playerNumber {
	case PlayerOne:
		match.Conn1 = conn
		if match.Player2 != nil {
			opponent = match.Player2.Username
		}
	case PlayerTwo:
		match.Conn2 = conn
		opponent = match.Player1.Username
	default:
		m.sendTo(conn, errorMsg("Game not found"))
		return
	}

	m.sendTo(conn, GameRejoinedMsg{
		Type:         "gameRejoined",
		GameID:       match.ID,
		PlayerNumber: playerNumber,
		Board:        match.Board,
		CurrentTurn:  match.Turn,
		Opponent:     opponent,
	})
}

func (m *Manager) doSweepPendingRooms(maxAge time.Duration) {
	var stale []*Match
	for _, match := range m.matches {
		if match.State() == StatePendingOpponent && time.Since(match.StartedAt) > maxAge {
			stale = append(stale, match)
		}
	}
	for _, match := range stale {
		log.Printf("🧹 Closing stale pending room %s (match %s)", match.RoomCode, match.ID)
		m.sendTo(match.Conn1, errorMsg("Room expired without an opponent"))
		m.removeMatch(match)
	}
}

func (m *Manager) broadcastState(match *Match) {
	state := GameUpdateMsg{
		Type:        "gameUpdate",
		Board:       match.Board,
		CurrentTurn: match.Turn,
	}
	m.sendTo(match.Conn1, state)
	if match.Player2 != nil && !match.Player2.IsBot {
		m.sendTo(match.Conn2, state)
	}
}

// settle finalizes a match exactly once: a match already removed from the
// live table cannot be settled again, which closes the race between a
// timer-driven forfeit and a last-second winning move. Registry cleanup
// happens before persistence and notification so nothing can find the
// match mid-settlement.
func (m *Manager) settle(match *Match, winner int) {
	if _, live := m.matches[match.ID]; !live {
		log.Printf("⚠️ Game already ended: %s", match.ID)
		return
	}

	duration := time.Since(match.StartedAt)

	winnerID := ""
	winnerName := "draw"
	if winner != 0 {
		if winner == PlayerOne {
			winnerID = match.Player1.UserID
			winnerName = match.Player1.Username
		} else if match.Player2 != nil && !match.Player2.IsBot {
			winnerID = match.Player2.UserID
			winnerName = match.Player2.Username
		} else {
			winnerName = "Bot"
		}
	}

	m.removeMatch(match)

	res := Result{
		MatchID:         match.ID,
		Player1ID:       match.Player1.UserID,
		Player1Username: match.Player1.Username,
		WinnerID:        winnerID,
		WinnerUsername:  winnerName,
		IsBotGame:       match.IsBotGame(),
		Duration:        duration,
		RoomCode:        match.RoomCode,
	}
	if match.Player2 != nil {
		res.Player2Username = match.Player2.Username
		if !match.Player2.IsBot {
			res.Player2ID = match.Player2.UserID
		}
	}

	if err := m.store.SaveGame(res); err != nil {
		log.Printf("❌ Failed to save game %s: %v", match.ID, err)
	}

	if m.archiver != nil {
		m.archiver.Archive(Replay{
			MatchID:  match.ID,
			RoomCode: match.RoomCode,
			Moves:    match.Moves,
			Board:    match.Board,
			Winner:   winner,
			IsBot:    match.IsBotGame(),
			Duration: int(duration.Seconds()),
		})
	}

	m.sendTo(match.Conn1, GameOverMsg{
		Type:    "gameOver",
		Winner:  winner,
		Board:   match.Board,
		Message: resultMessage(winner, PlayerOne),
	})
	if match.Player2 != nil && !match.Player2.IsBot {
		m.sendTo(match.Conn2, GameOverMsg{
			Type:    "gameOver",
			Winner:  winner,
			Board:   match.Board,
			Message: resultMessage(winner, PlayerTwo),
		})
	}

	log.Printf("📊 Game ended: %s winner=%s duration=%s", match.ID, winnerName, duration.Round(time.Second))
}

// removeMatch clears every index entry for match, including any disconnect
// records still pointing at it.
func (m *Manager) removeMatch(match *Match) {
	delete(m.playerMatch, match.Player1.UserID)
	if match.Player2 != nil && !match.Player2.IsBot {
		delete(m.playerMatch, match.Player2.UserID)
	}
	if match.RoomCode != "" {
		delete(m.rooms, match.RoomCode)
	}
	delete(m.matches, match.ID)

	for userID, rec := range m.disconnected {
		if rec.matchID == match.ID {
			rec.timer.Stop()
			delete(m.disconnected, userID)
		}
	}
}

func resultMessage(winner, playerNumber int) string {
	switch {
	case winner == 0:
		return "Draw!"
	case winner == playerNumber:
		return "You win!"
	}
	return "You lose!"
}

func (m *Manager) sendTo(conn Conn, v any) {
	if conn == nil {
		return
	}
	if err := conn.WriteJSON(v); err != nil {
		log.Printf("⚠️ Cannot send to player: %v", err)
	}
}
