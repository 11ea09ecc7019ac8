package services

import (
	"log"
	"strings"

	"connect-four-arena/game"
	"connect-four-arena/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GameStore is the persistence sink for settled matches plus the read side
// for the leaderboard and per-user stats.
type GameStore struct {
	DB *gorm.DB
}

func NewGameStore(db *gorm.DB) *GameStore {
	return &GameStore{DB: db}
}

// SaveGame persists a settled match. Implements game.Store; callers treat
// failures as best-effort.
func (s *GameStore) SaveGame(res game.Result) error {
	rec := models.GameRecord{
		ID:              res.MatchID,
		Player1Username: res.Player1Username,
		Player2Username: res.Player2Username,
		WinnerUsername:  res.WinnerUsername,
		IsBotGame:       res.IsBotGame,
		DurationSec:     int(res.Duration.Seconds()),
	}
	if res.Player1ID != "" {
		rec.Player1ID = &res.Player1ID
	}
	if res.Player2ID != "" {
		rec.Player2ID = &res.Player2ID
	}
	if res.WinnerID != "" {
		rec.WinnerID = &res.WinnerID
	}
	if res.RoomCode != "" {
		rec.RoomCode = &res.RoomCode
	}

	if err := s.DB.Create(&rec).Error; err != nil {
		return err
	}
	log.Printf("💾 Game saved: %s", res.MatchID)
	return nil
}

// CreateUserProfile upserts the local profile row after signup. Conflicts
// on id are ignored, matching repeated signups for the same identity.
func (s *GameStore) CreateUserProfile(userID, username string) error {
	profile := models.UserProfile{ID: userID, Username: username}
	return s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&profile).Error
}

// LeaderboardRow is one aggregate line of the ranking query.
type LeaderboardRow struct {
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	GamesPlayed int     `json:"games_played"`
	WinRate     float64 `json:"win_rate"`
}

var displayCaser = cases.Title(language.English)

// Leaderboard aggregates persisted games per user, ordered by wins then
// win rate.
func (s *GameStore) Leaderboard(limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := s.DB.Raw(`
		SELECT u.username,
		       COUNT(g.id) FILTER (WHERE g.winner_id = u.id) AS wins,
		       COUNT(g.id) FILTER (WHERE g.winner_id IS NOT NULL AND g.winner_id <> u.id) AS losses,
		       COUNT(g.id) AS games_played,
		       ROUND(COUNT(g.id) FILTER (WHERE g.winner_id = u.id)::decimal
		             / NULLIF(COUNT(g.id), 0) * 100, 1) AS win_rate
		FROM user_profiles u
		JOIN games g ON g.player1_id = u.id OR g.player2_id = u.id
		GROUP BY u.id, u.username
		ORDER BY wins DESC, win_rate DESC
		LIMIT ?`, limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].DisplayName = displayCaser.String(strings.ToLower(rows[i].Username))
	}
	return rows, nil
}

// UserStats returns the aggregate line for a single user, or nil when they
// have no recorded games.
func (s *GameStore) UserStats(userID string) (*LeaderboardRow, error) {
	var row LeaderboardRow
	res := s.DB.Raw(`
		SELECT u.username,
		       COUNT(g.id) FILTER (WHERE g.winner_id = u.id) AS wins,
		       COUNT(g.id) FILTER (WHERE g.winner_id IS NOT NULL AND g.winner_id <> u.id) AS losses,
		       COUNT(g.id) AS games_played,
		       ROUND(COUNT(g.id) FILTER (WHERE g.winner_id = u.id)::decimal
		             / NULLIF(COUNT(g.id), 0) * 100, 1) AS win_rate
		FROM user_profiles u
		JOIN games g ON g.player1_id = u.id OR g.player2_id = u.id
		WHERE u.id = ?
		GROUP BY u.id, u.username`, userID).Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	row.DisplayName = displayCaser.String(strings.ToLower(row.Username))
	return &row, nil
}
