package models

import "time"

// RevokedToken records a logged-out access token until it would have expired.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"`
	JTI       string    `gorm:"uniqueIndex;size:64;not null"`
	UserID    uint      `gorm:"index"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}
