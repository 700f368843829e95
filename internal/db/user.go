package db

import "time"

// User mirrors an identity-provider account. Rows are created on first
// authenticated access and never deleted here.
type User struct {
	ID            uint      `gorm:"primaryKey"`
	ExternalID    string    `gorm:"size:128;uniqueIndex;not null"`
	GamesStarted  int       `gorm:"not null;default:0"`
	GamesFinished int       `gorm:"not null;default:0"`
	TotalScore    int       `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
	Games         []Game
}
