package game

// Outbound websocket payloads. Field names follow the wire contract the
// web client already speaks.

type RoomCreatedMsg struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode"`
	GameID   string `json:"gameId"`
	Message  string `json:"message"`
}

type GameStartMsg struct {
	Type         string `json:"type"`
	GameID       string `json:"gameId"`
	PlayerNumber int    `json:"playerNumber"`
	Opponent     string `json:"opponent"`
	Board        Board  `json:"board"`
	CurrentTurn  int    `json:"currentTurn"`
	RoomCode     string `json:"roomCode,omitempty"`
	IsBot        bool   `json:"isBot"`
}

type GameUpdateMsg struct {
	Type        string `json:"type"`
	Board       Board  `json:"board"`
	CurrentTurn int    `json:"currentTurn"`
}

type GameOverMsg struct {
	Type    string `json:"type"`
	Winner  int    `json:"winner"`
	Board   Board  `json:"board"`
	Message string `json:"message"`
}

type GameRejoinedMsg struct {
	Type         string `json:"type"`
	GameID       string `json:"gameId"`
	PlayerNumber int    `json:"playerNumber"`
	Board        Board  `json:"board"`
	CurrentTurn  int    `json:"currentTurn"`
	Opponent     string `json:"opponent"`
}

type OpponentDisconnectedMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func errorMsg(message string) ErrorMsg {
	return ErrorMsg{Type: "error", Message: message}
}
