package models

import "time"

// UserProfile is the local profile row created at signup. Identity itself
// is owned by the external auth provider; this table only mirrors the id
// and chosen username for match records and the leaderboard.
type UserProfile struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (UserProfile) TableName() string { return "user_profiles" }
