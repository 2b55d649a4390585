package models

import "time"

const DefaultLegacyCategory = "wisdom"

type LegacyMessage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SeniorDevID uint      `gorm:"not null;index" json:"seniorDevId"`
	SeniorDev   *User     `gorm:"foreignKey:SeniorDevID" json:"seniorDev,omitempty"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Category    string    `gorm:"size:50;not null;index" json:"category"`
	IsPublic    bool      `gorm:"not null;index" json:"isPublic"`
	IsSpecial   bool      `gorm:"not null" json:"isSpecial"`
	AudioURL    string    `gorm:"size:500" json:"audioUrl,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
