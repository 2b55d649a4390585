package models

import "time"

// Analytics holds one row per user per UTC day.
//
// AvgResponseTime accumulates the raw response time of every query; it is a
// running sum, not a mean. Readers divide by QueryCount.
type Analytics struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_analytics_user_date" json:"userId"`
	Date            time.Time `gorm:"not null;uniqueIndex:idx_analytics_user_date" json:"date"`
	QueryCount      int64     `gorm:"not null;default:0" json:"queryCount"`
	TotalTokens     int64     `gorm:"not null;default:0" json:"totalTokens"`
	DailyQueries    int64     `gorm:"not null;default:0" json:"dailyQueries"`
	AvgResponseTime int64     `gorm:"not null;default:0" json:"avgResponseTime"`
	LastActivity    time.Time `json:"lastActivity"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (Analytics) TableName() string { return "analytics" }

// MeanResponseTime is the true per-query mean for the row.
func (a Analytics) MeanResponseTime() float64 {
	if a.QueryCount == 0 {
		return 0
	}
	return float64(a.AvgResponseTime) / float64(a.QueryCount)
}
