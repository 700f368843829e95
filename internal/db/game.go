package db

import (
	"time"

	"gorm.io/datatypes"
)

const (
	GameModeClassic     = "classic"
	GameModeCompetition = "competition"

	GameStatusActive   = "active"
	GameStatusFinished = "finished"
)

// Game is one quiz session. Competition template rows have a nil UserID and
// are only copied into per-user sessions, never finished themselves.
type Game struct {
	ID         uint   `gorm:"primaryKey"`
	PublicID   string `gorm:"size:36;uniqueIndex;not null"`
	UserID     *uint  `gorm:"index"`
	Code       string `gorm:"size:32;index;not null"`
	Mode       string `gorm:"size:16;not null"`
	Status     string `gorm:"size:16;not null"`
	Score      float64
	Results    datatypes.JSON
	CreatedAt  time.Time `gorm:"not null"`
	FinishedAt *time.Time
	Images     []GameImage
	Guesses    []Guess
}

// GameImage pins the ordered image set of a game.
type GameImage struct {
	ID       uint `gorm:"primaryKey"`
	GameID   uint `gorm:"index;not null;uniqueIndex:idx_game_images_game_image"`
	ImageID  uint `gorm:"not null;uniqueIndex:idx_game_images_game_image"`
	Position int  `gorm:"not null"`
}
