package models

import "time"

// Client is an API consumer allowed to request captions over HTTP.
type Client struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Name         string `gorm:"size:255;not null;unique"`
	HashedSecret []byte `gorm:"not null"`
}
