package models

import "time"

// GameRecord is the persisted outcome of one settled match.
type GameRecord struct {
	ID              string  `gorm:"primaryKey;type:uuid" json:"id"`
	Player1ID       *string `gorm:"index" json:"player1_id"`
	Player2ID       *string `gorm:"index" json:"player2_id"` // nil for bot games
	Player1Username string  `json:"player1_username"`
	Player2Username string  `json:"player2_username"`
	WinnerID        *string `gorm:"index" json:"winner_id"`
	WinnerUsername  string  `json:"winner_username"` // "draw" when nobody won
	IsBotGame       bool    `json:"is_bot_game" gorm:"default:false"`
	DurationSec     int     `json:"duration_sec" gorm:"default:0"`
	RoomCode        *string `json:"room_code,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (GameRecord) TableName() string { return "games" }
