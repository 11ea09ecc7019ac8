package game

import "time"

// Result is the terminal record of a settled match, handed to the
// persistence sink. Persisting is best-effort: a failure is logged and the
// parties are notified regardless.
type Result struct {
	MatchID         string
	Player1ID       string
	Player2ID       string // empty for bot games
	Player1Username string
	Player2Username string
	WinnerID        string
	WinnerUsername  string // "draw" when nobody won
	IsBotGame       bool
	Duration        time.Duration
	RoomCode        string
}

// Store persists completed matches and is consumed by the manager as an
// external collaborator.
type Store interface {
	SaveGame(res Result) error
}

// Replay is the archive document emitted for a settled match.
type Replay struct {
	MatchID  string `json:"match_id"`
	RoomCode string `json:"room_code,omitempty"`
	Moves    []int  `json:"moves"`
	Board    Board  `json:"board"`
	Winner   int    `json:"winner"`
	IsBot    bool   `json:"is_bot"`
	Duration int    `json:"duration_sec"`
}

// Archiver accepts replay documents without blocking the manager.
type Archiver interface {
	Archive(rep Replay)
}
