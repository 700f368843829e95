package db

import "time"

// Guess rows are written once, when a game is finished.
type Guess struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"not null;uniqueIndex:idx_guesses_game_image"`
	ImageID   uint      `gorm:"index;not null;uniqueIndex:idx_guesses_game_image"`
	GuessType string    `gorm:"size:8;not null"`
	Correct   bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
