package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"heirloom/models"
)

const (
	activityWindow = 30
	topUserLimit   = 10
)

// AnalyticsService owns the per-user daily usage rows and their rollups.
type AnalyticsService struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewAnalyticsService(db *gorm.DB, log *zap.Logger) *AnalyticsService {
	return &AnalyticsService{db: db, log: log.Named("analytics"), now: time.Now}
}

// Today is the current UTC day at midnight, the key of the daily row.
func (s *AnalyticsService) Today() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}

// RecordQuery folds one completed turn into today's row for the user in a
// single upsert so concurrent turns never lose increments.
// The response time is added to AvgResponseTime as a running sum.
func (s *AnalyticsService) RecordQuery(ctx context.Context, userID uint, tokensUsed int, responseTimeMs int64) error {
	now := s.now()
	row := models.Analytics{
		UserID:          userID,
		Date:            s.Today(),
		QueryCount:      1,
		TotalTokens:     int64(tokensUsed),
		DailyQueries:    1,
		AvgResponseTime: responseTimeMs,
		LastActivity:    now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"query_count":       gorm.Expr("analytics.query_count + ?", 1),
			"total_tokens":      gorm.Expr("analytics.total_tokens + ?", tokensUsed),
			"daily_queries":     gorm.Expr("analytics.daily_queries + ?", 1),
			"avg_response_time": gorm.Expr("analytics.avg_response_time + ?", responseTimeMs),
			"last_activity":     now,
			"updated_at":        now,
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("record query for user %d: %w", userID, err)
	}
	return nil
}

type SystemOverview struct {
	TotalUsers          int64 `json:"totalUsers"`
	TotalConversations  int64 `json:"totalConversations"`
	TotalMessages       int64 `json:"totalMessages"`
	TotalLegacyMessages int64 `json:"totalLegacyMessages"`
}

type DailyActivity struct {
	Date         time.Time `json:"date"`
	DailyQueries int64     `json:"dailyQueries"`
	TotalTokens  int64     `json:"totalTokens"`
}

type TopUser struct {
	UserID      uint   `json:"userId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	QueryCount  int64  `json:"queryCount"`
	TotalTokens int64  `json:"totalTokens"`
}

type SystemDashboard struct {
	Overview       SystemOverview  `json:"overview"`
	RecentActivity []DailyActivity `json:"recentActivity"`
	TopUsers       []TopUser       `json:"topUsers"`
}

type PersonalOverview struct {
	TotalQueries        int64   `json:"totalQueries"`
	TotalTokens         int64   `json:"totalTokens"`
	AverageResponseTime float64 `json:"averageResponseTime"`
	TotalConversations  int64   `json:"totalConversations"`
}

type PersonalDashboard struct {
	Overview      PersonalOverview   `json:"overview"`
	DailyActivity []models.Analytics `json:"dailyActivity"`
}

func (s *AnalyticsService) SystemDashboard(ctx context.Context) (*SystemDashboard, error) {
	db := s.db.WithContext(ctx)
	out := &SystemDashboard{RecentActivity: []DailyActivity{}, TopUsers: []TopUser{}}

	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.User{}, &out.Overview.TotalUsers},
		{&models.Conversation{}, &out.Overview.TotalConversations},
		{&models.Message{}, &out.Overview.TotalMessages},
		{&models.LegacyMessage{}, &out.Overview.TotalLegacyMessages},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("count overview: %w", err)
		}
	}

	if err := db.Model(&models.Analytics{}).
		Select("date, SUM(daily_queries) AS daily_queries, SUM(total_tokens) AS total_tokens").
		Group("date").
		Order("date DESC").
		Limit(activityWindow).
		Scan(&out.RecentActivity).Error; err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}

	var top []TopUser
	if err := db.Model(&models.Analytics{}).
		Select("user_id, SUM(query_count) AS query_count, SUM(total_tokens) AS total_tokens").
		Group("user_id").
		Order("query_count DESC").
		Limit(topUserLimit).
		Scan(&top).Error; err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	if len(top) > 0 {
		ids := make([]uint, 0, len(top))
		for _, t := range top {
			ids = append(ids, t.UserID)
		}
		var users []models.User
		if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
			return nil, fmt.Errorf("top user names: %w", err)
		}
		byID := make(map[uint]models.User, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}
		for i := range top {
			top[i].Name = byID[top[i].UserID].Name
			top[i].Email = byID[top[i].UserID].Email
		}
		out.TopUsers = top
	}
	return out, nil
}

func (s *AnalyticsService) PersonalDashboard(ctx context.Context, userID uint) (*PersonalDashboard, error) {
	db := s.db.WithContext(ctx)
	out := &PersonalDashboard{DailyActivity: []models.Analytics{}}

	if err := db.Where("user_id = ?", userID).
		Order("date DESC").
		Limit(activityWindow).
		Find(&out.DailyActivity).Error; err != nil {
		return nil, fmt.Errorf("daily activity: %w", err)
	}

	totals, err := s.totals(ctx, userID)
	if err != nil {
		return nil, err
	}
	out.Overview.TotalQueries = totals.Queries
	out.Overview.TotalTokens = totals.Tokens
	out.Overview.AverageResponseTime = totals.meanResponseTime()

	if err := db.Model(&models.Conversation{}).
		Where("user_id = ? AND state = ?", userID, models.StateActive).
		Count(&out.Overview.TotalConversations).Error; err != nil {
		return nil, fmt.Errorf("count conversations: %w", err)
	}
	return out, nil
}

type usageTotals struct {
	Queries      int64
	Tokens       int64
	ResponseTime int64
}

func (t usageTotals) meanResponseTime() float64 {
	if t.Queries == 0 {
		return 0
	}
	return float64(t.ResponseTime) / float64(t.Queries)
}

// totals sums usage for one user, or for everyone when userID is zero.
func (s *AnalyticsService) totals(ctx context.Context, userID uint) (usageTotals, error) {
	var t usageTotals
	q := s.db.WithContext(ctx).Model(&models.Analytics{}).
		Select("COALESCE(SUM(query_count), 0) AS queries, COALESCE(SUM(total_tokens), 0) AS tokens, COALESCE(SUM(avg_response_time), 0) AS response_time")
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Scan(&t).Error; err != nil {
		return t, fmt.Errorf("usage totals: %w", err)
	}
	return t, nil
}

type ConversationStats struct {
	TotalConversations             int64            `json:"totalConversations"`
	TotalMessages                  int64            `json:"totalMessages"`
	MessagesByType                 map[string]int64 `json:"messagesByType"`
	AverageMessagesPerConversation float64          `json:"averageMessagesPerConversation"`
}

// ConversationStats covers active conversations of one user, or of everyone
// when userID is zero.
func (s *AnalyticsService) ConversationStats(ctx context.Context, userID uint) (*ConversationStats, error) {
	db := s.db.WithContext(ctx)
	out := &ConversationStats{MessagesByType: map[string]int64{string(models.MessageUser): 0, string(models.MessageBot): 0}}

	convs := db.Model(&models.Conversation{}).Where("state = ?", models.StateActive)
	if userID != 0 {
		convs = convs.Where("user_id = ?", userID)
	}
	if err := convs.Count(&out.TotalConversations).Error; err != nil {
		return nil, fmt.Errorf("count conversations: %w", err)
	}

	var rows []struct {
		Type  string
		Total int64
	}
	q := db.Model(&models.Message{}).
		Select("messages.type AS type, COUNT(*) AS total").
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.state = ?", models.StateActive).
		Group("messages.type")
	if userID != 0 {
		q = q.Where("conversations.user_id = ?", userID)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	for _, r := range rows {
		out.MessagesByType[r.Type] = r.Total
		out.TotalMessages += r.Total
	}
	if out.TotalConversations > 0 {
		out.AverageMessagesPerConversation = float64(out.TotalMessages) / float64(out.TotalConversations)
	}
	return out, nil
}

type UsagePoint struct {
	Date        time.Time `json:"date"`
	Queries     int64     `json:"queries"`
	TotalTokens int64     `json:"totalTokens"`
}

type AIUsage struct {
	TotalQueries        int64        `json:"totalQueries"`
	TotalTokens         int64        `json:"totalTokens"`
	AverageResponseTime float64      `json:"averageResponseTime"`
	Trend               []UsagePoint `json:"trend"`
}

// AIUsage reports totals and the last 30 days, oldest first.
func (s *AnalyticsService) AIUsage(ctx context.Context, userID uint) (*AIUsage, error) {
	totals, err := s.totals(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &AIUsage{
		TotalQueries:        totals.Queries,
		TotalTokens:         totals.Tokens,
		AverageResponseTime: totals.meanResponseTime(),
		Trend:               []UsagePoint{},
	}
	since := s.Today().AddDate(0, 0, -(activityWindow - 1))
	q := s.db.WithContext(ctx).Model(&models.Analytics{}).
		Select("date, SUM(query_count) AS queries, SUM(total_tokens) AS total_tokens").
		Where("date >= ?", since).
		Group("date").
		Order("date ASC")
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Scan(&out.Trend).Error; err != nil {
		return nil, fmt.Errorf("usage trend: %w", err)
	}
	return out, nil
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type LegacyEngagement struct {
	ByCategory   []CategoryCount        `json:"byCategory"`
	SpecialCount int64                  `json:"specialCount"`
	Recent       []models.LegacyMessage `json:"recent"`
}

// LegacyEngagement summarises public legacy messages.
func (s *AnalyticsService) LegacyEngagement(ctx context.Context) (*LegacyEngagement, error) {
	db := s.db.WithContext(ctx)
	out := &LegacyEngagement{ByCategory: []CategoryCount{}, Recent: []models.LegacyMessage{}}

	if err := db.Model(&models.LegacyMessage{}).
		Select("category, COUNT(*) AS count").
		Where("is_public = ?", true).
		Group("category").
		Order("count DESC").
		Scan(&out.ByCategory).Error; err != nil {
		return nil, fmt.Errorf("legacy by category: %w", err)
	}
	if err := db.Model(&models.LegacyMessage{}).
		Where("is_public = ? AND is_special = ?", true, true).
		Count(&out.SpecialCount).Error; err != nil {
		return nil, fmt.Errorf("legacy special count: %w", err)
	}
	if err := db.Where("is_public = ? AND created_at >= ?", true, s.now().AddDate(0, 0, -7)).
		Order("created_at DESC").
		Find(&out.Recent).Error; err != nil {
		return nil, fmt.Errorf("recent legacy: %w", err)
	}
	return out, nil
}
