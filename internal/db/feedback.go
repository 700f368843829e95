package db

import "time"

// Feedback is a flag raised against a guess. The resolved transition is
// monotonic: bulk resolution only flips false to true.
type Feedback struct {
	ID        uint      `gorm:"primaryKey"`
	Text      string    `gorm:"size:1000"`
	Resolved  bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Feedback) TableName() string { return "feedback" }

// FeedbackUser links a feedback entry to the guess it was raised against.
type FeedbackUser struct {
	ID         uint `gorm:"primaryKey"`
	FeedbackID uint `gorm:"index;not null"`
	GuessID    uint `gorm:"index;not null"`
}
