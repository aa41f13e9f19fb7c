package models

import "time"

// ImageAnalysis is the persisted form of one described image.
type ImageAnalysis struct {
	ID            uint `gorm:"primaryKey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	AnalysisID    string `gorm:"size:36;uniqueIndex;not null"`
	RunID         string `gorm:"size:36;index"`
	FileName      string `gorm:"size:255;index;not null"`
	Caption       string `gorm:"type:text"`
	AIDescription string `gorm:"type:text"`
	// Tags is stored comma delimited on both ends (",beach,dog,") so a LIKE on ",tag," is exact.
	Tags   string `gorm:"type:text"`
	Width  int
	Height int
	Format string `gorm:"size:16"`
	// Failed marks analyses that fell back to the error result; the row is kept for review.
	Failed  bool   `gorm:"default:false;index"`
	Error   string `gorm:"size:512"`
	Payload string `gorm:"type:text"` // full analysis JSON
}
