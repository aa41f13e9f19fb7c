package models

import "time"

// CaptionRun records one batch pass over an input folder.
type CaptionRun struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RunID      string `gorm:"size:36;uniqueIndex;not null"`
	InputDir   string `gorm:"size:512"`
	Total      int    `gorm:"not null;default:0"`
	Failed     int    `gorm:"not null;default:0"`
	StartedAt  time.Time
	FinishedAt *time.Time
}
