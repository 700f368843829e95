package db

import "time"

const (
	ImageTypeReal = "real"
	ImageTypeAI   = "ai"
)

// Image is immutable once created by the admin upload pipeline.
type Image struct {
	ID         uint      `gorm:"primaryKey"`
	Path       string    `gorm:"size:255;not null"`
	Type       string    `gorm:"size:8;not null;index"`
	Age        int       `gorm:"not null;default:0"`
	Gender     string    `gorm:"size:16"`
	Race       string    `gorm:"size:32"`
	Disease    string    `gorm:"size:64"`
	UploadTime time.Time `gorm:"not null"`
}
