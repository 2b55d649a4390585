package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"heirloom/models"
	"heirloom/pkg/apperror"
	"heirloom/pkg/auth"
)

var wisdomCategories = []string{"wisdom", "motivational", "farewell"}

// LegacyService manages the messages senior developers leave behind.
type LegacyService struct {
	db       *gorm.DB
	provider CompletionProvider
	log      *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewLegacyService(db *gorm.DB, provider CompletionProvider, log *zap.Logger) *LegacyService {
	return &LegacyService{
		db:       db,
		provider: provider,
		log:      log.Named("legacy"),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type LegacyInput struct {
	Title          string `json:"title"`
	Content        string `json:"content"`
	Category       string `json:"category"`
	IsPublic       *bool  `json:"isPublic"`
	IsSpecial      *bool  `json:"isSpecial"`
	AudioURL       string `json:"audioUrl"`
	GenerateWithAI bool   `json:"generateWithAI"`
	AIPrompt       string `json:"aiPrompt"`
}

// visible narrows a query to what the caller may read.
func visible(q *gorm.DB, p auth.Principal) *gorm.DB {
	switch {
	case p.Can(auth.CapReadAllLegacy):
		return q
	case p.Role == auth.RoleSeniorDev:
		return q.Where("senior_dev_id = ?", p.UserID)
	default:
		return q.Where("is_public = ?", true)
	}
}

func canRead(p auth.Principal, m *models.LegacyMessage) bool {
	switch {
	case p.Can(auth.CapReadAllLegacy):
		return true
	case p.Role == auth.RoleSeniorDev:
		return m.SeniorDevID == p.UserID
	default:
		return m.IsPublic
	}
}

func canWrite(p auth.Principal, m *models.LegacyMessage) bool {
	if !p.Can(auth.CapAuthorLegacy) {
		return false
	}
	return p.Can(auth.CapReadAllLegacy) || m.SeniorDevID == p.UserID
}

// List orders special messages first, then newest.
func (s *LegacyService) List(ctx context.Context, p auth.Principal, category string) ([]models.LegacyMessage, error) {
	q := visible(s.db.WithContext(ctx).Preload("SeniorDev"), p)
	if category = strings.TrimSpace(category); category != "" {
		q = q.Where("category = ?", category)
	}
	out := []models.LegacyMessage{}
	if err := q.Order("is_special DESC, created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, apperror.Internal("failed to list legacy messages", err)
	}
	return out, nil
}

func (s *LegacyService) Get(ctx context.Context, p auth.Principal, id uint) (*models.LegacyMessage, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(p, m) {
		return nil, apperror.Forbidden("you do not have access to this legacy message")
	}
	return m, nil
}

func (s *LegacyService) load(ctx context.Context, id uint) (*models.LegacyMessage, error) {
	var m models.LegacyMessage
	err := s.db.WithContext(ctx).Preload("SeniorDev").First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("legacy message not found")
	}
	if err != nil {
		return nil, apperror.Internal("failed to load legacy message", err)
	}
	return &m, nil
}

func (s *LegacyService) Create(ctx context.Context, p auth.Principal, in LegacyInput) (*models.LegacyMessage, error) {
	if !p.Can(auth.CapAuthorLegacy) {
		return nil, apperror.Forbidden("only senior developers and admins can create legacy messages")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = models.DefaultLegacyCategory
	}
	content := strings.TrimSpace(in.Content)
	if in.GenerateWithAI && strings.TrimSpace(in.AIPrompt) != "" {
		content = s.provider.DraftLegacyMessage(ctx, in.AIPrompt, category)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || content == "" {
		return nil, apperror.Validation("title and content are required")
	}

	m := models.LegacyMessage{
		SeniorDevID: p.UserID,
		Title:       title,
		Content:     content,
		Category:    category,
		IsPublic:    true,
		AudioURL:    strings.TrimSpace(in.AudioURL),
	}
	if in.IsPublic != nil {
		m.IsPublic = *in.IsPublic
	}
	if in.IsSpecial != nil {
		m.IsSpecial = *in.IsSpecial
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, apperror.Internal("failed to create legacy message", err)
	}
	return s.load(ctx, m.ID)
}

func (s *LegacyService) Update(ctx context.Context, p auth.Principal, id uint, in LegacyInput) (*models.LegacyMessage, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canWrite(p, m) {
		return nil, apperror.Forbidden("you can only edit your own legacy messages")
	}
	updates := map[string]interface{}{}
	if v := strings.TrimSpace(in.Title); v != "" {
		updates["title"] = v
	}
	if v := strings.TrimSpace(in.Content); v != "" {
		updates["content"] = v
	}
	if v := strings.TrimSpace(in.Category); v != "" {
		updates["category"] = v
	}
	if in.IsPublic != nil {
		updates["is_public"] = *in.IsPublic
	}
	if in.IsSpecial != nil {
		updates["is_special"] = *in.IsSpecial
	}
	if in.AudioURL != "" {
		updates["audio_url"] = strings.TrimSpace(in.AudioURL)
	}
	if len(updates) == 0 {
		return m, nil
	}
	if err := s.db.WithContext(ctx).Model(m).Updates(updates).Error; err != nil {
		return nil, apperror.Internal("failed to update legacy message", err)
	}
	return s.load(ctx, id)
}

func (s *LegacyService) Delete(ctx context.Context, p auth.Principal, id uint) error {
	m, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canWrite(p, m) {
		return apperror.Forbidden("you can only delete your own legacy messages")
	}
	if err := s.db.WithContext(ctx).Delete(&models.LegacyMessage{}, id).Error; err != nil {
		return apperror.Internal("failed to delete legacy message", err)
	}
	return nil
}

// DefaultWisdom is shown when no public wisdom has been written yet.
func DefaultWisdom() models.LegacyMessage {
	return models.LegacyMessage{
		Title:     "Welcome to Knowledge Heirloom!",
		Content:   "Every question you ask here builds on the experience of the people who came before you. Read, ask, and add what you learn.",
		Category:  "welcome",
		IsPublic:  true,
		IsSpecial: true,
		SeniorDev: &models.User{Name: "Knowledge Heirloom Team"},
	}
}

// DailyWisdom picks a random public message from the wisdom categories.
func (s *LegacyService) DailyWisdom(ctx context.Context, p auth.Principal) (*models.LegacyMessage, error) {
	if !p.Can(auth.CapReadDailyWisdom) {
		return nil, apperror.Forbidden("daily wisdom is only available to employees")
	}
	var pool []models.LegacyMessage
	if err := s.db.WithContext(ctx).Preload("SeniorDev").
		Where("is_public = ? AND category IN ?", true, wisdomCategories).
		Find(&pool).Error; err != nil {
		return nil, apperror.Internal("failed to load wisdom", err)
	}
	if len(pool) == 0 {
		d := DefaultWisdom()
		return &d, nil
	}
	s.mu.Lock()
	pick := pool[s.rnd.Intn(len(pool))]
	s.mu.Unlock()
	return &pick, nil
}

// PromptContext formats the most recent public messages for a chat prompt as
// `"title": content` blocks separated by blank lines.
func (s *LegacyService) PromptContext(ctx context.Context, limit int) (string, error) {
	var recent []models.LegacyMessage
	if err := s.db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&recent).Error; err != nil {
		return "", err
	}
	parts := make([]string, 0, len(recent))
	for _, m := range recent {
		parts = append(parts, fmt.Sprintf("\"%s\": %s", m.Title, m.Content))
	}
	return strings.Join(parts, "\n\n"), nil
}
