package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"heirloom/models"
	"heirloom/pkg/apperror"
	"heirloom/pkg/auth"
	"heirloom/pkg/lock"
	utils "heirloom/pkg/utills"
)

const (
	// historyWindow counts the new user message, which is then dropped.
	historyWindow    = 10
	titleWords       = 5
	titleMaxLen      = 30
	previewLen       = 100
	legacyContextMax = 2
	noMessagesYet    = "No messages yet"
)

// QueryRecorder receives one call per completed turn.
type QueryRecorder interface {
	RecordQuery(ctx context.Context, userID uint, tokensUsed int, responseTimeMs int64) error
}

// ConversationService runs chat turns for conversations owned by the caller.
type ConversationService struct {
	db        *gorm.DB
	provider  CompletionProvider
	analytics QueryRecorder
	legacy    *LegacyService
	locks     lock.Locker
	log       *zap.Logger
}

func NewConversationService(db *gorm.DB, provider CompletionProvider, analytics QueryRecorder, legacy *LegacyService, locks lock.Locker, log *zap.Logger) *ConversationService {
	return &ConversationService{
		db:        db,
		provider:  provider,
		analytics: analytics,
		legacy:    legacy,
		locks:     locks,
		log:       log.Named("conversation"),
	}
}

// Exchange is one persisted user message and the reply to it.
type Exchange struct {
	UserMessage models.Message `json:"userMessage"`
	AIResponse  models.Message `json:"aiResponse"`
}

type ConversationSummary struct {
	models.Conversation
	LastMessage  string `json:"lastMessage"`
	MessageCount int64  `json:"messageCount"`
}

// GenerateTitle builds a conversation title from the first five words of a
// message, capped at 30 characters; "..." marks anything left out.
func GenerateTitle(content string) string {
	words := strings.Fields(content)
	if len(words) == 0 {
		return models.DefaultConversationTitle
	}
	cut := len(words) > titleWords
	if cut {
		words = words[:titleWords]
	}
	title := strings.Join(words, " ")
	if utf8.RuneCountInString(title) > titleMaxLen {
		title = string([]rune(title)[:titleMaxLen])
		cut = true
	}
	if cut {
		title += "..."
	}
	return title
}

// Start creates a conversation and, when initialMessage is not blank, runs the
// first turn right away.
func (s *ConversationService) Start(ctx context.Context, p auth.Principal, title, initialMessage string) (*models.Conversation, *Exchange, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = models.DefaultConversationTitle
	}
	conv := models.Conversation{UserID: p.UserID, Title: title, State: models.StateActive}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, nil, apperror.Internal("failed to create conversation", err)
	}

	initialMessage = strings.TrimSpace(initialMessage)
	if initialMessage == "" {
		return &conv, nil, nil
	}
	release, err := s.acquire(ctx, conv.ID)
	if err == nil {
		var ex *Exchange
		ex, err = s.runTurn(ctx, p, &conv, initialMessage)
		release()
		if err == nil {
			return &conv, ex, nil
		}
	}
	// a conversation whose first turn failed is not left behind
	if derr := s.db.WithContext(context.WithoutCancel(ctx)).Model(&conv).
		Update("state", models.StateDeleted).Error; derr != nil {
		s.log.Warn("discard failed conversation", zap.Uint("conversation_id", conv.ID), zap.Error(derr))
	}
	return nil, nil, err
}

// SendMessage appends a user message to an owned, active conversation and
// returns it together with the assistant's reply.
func (s *ConversationService) SendMessage(ctx context.Context, p auth.Principal, conversationID uint, content string) (*Exchange, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.Validation("message content is required")
	}
	conv, err := s.ownedActive(ctx, p.UserID, conversationID)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	ex, err := s.runTurn(ctx, p, conv, content)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"updated_at": ex.AIResponse.CreatedAt}
	if conv.HasDefaultTitle() {
		updates["title"] = GenerateTitle(content)
	}
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Model(conv).Updates(updates).Error; err != nil {
		return nil, apperror.Internal("failed to update conversation", err)
	}
	return ex, nil
}

// acquire takes the per-conversation turn lock.
func (s *ConversationService) acquire(ctx context.Context, conversationID uint) (func(), error) {
	release, err := s.locks.Acquire(ctx, fmt.Sprintf("conversation:%d", conversationID))
	if err == nil {
		return release, nil
	}
	if ctx.Err() != nil {
		return nil, apperror.Canceled("request canceled", err)
	}
	return nil, apperror.Internal("conversation is busy", err)
}

// runTurn persists the user message, asks the provider with bounded history
// and persists the reply. Analytics failures are logged, never returned.
func (s *ConversationService) runTurn(ctx context.Context, p auth.Principal, conv *models.Conversation, content string) (*Exchange, error) {
	db := s.db.WithContext(ctx)

	userMsg := models.Message{ConversationID: conv.ID, Content: content, Type: models.MessageUser}
	if err := db.Create(&userMsg).Error; err != nil {
		return nil, apperror.Internal("failed to save message", err)
	}

	history, err := s.history(ctx, conv.ID, userMsg.ID)
	if err != nil {
		return nil, err
	}

	var legacyContext string
	if p.Can(auth.CapReceiveLegacyContext) && s.legacy != nil {
		legacyContext, err = s.legacy.PromptContext(ctx, legacyContextMax)
		if err != nil {
			s.log.Warn("legacy context unavailable", zap.Error(err))
		}
	}

	reply := s.provider.Generate(ctx, CompletionRequest{
		Message:       content,
		History:       history,
		Role:          p.Role,
		LegacyContext: legacyContext,
	})

	// the reply exists now; finish the turn even if the caller went away
	persist := context.WithoutCancel(ctx)
	botMsg := models.Message{
		ConversationID: conv.ID,
		Content:        reply.Content,
		Type:           models.MessageBot,
		AIModel:        reply.Model,
		TokensUsed:     reply.TokensUsed,
		ResponseTime:   reply.ResponseTimeMs,
	}
	if err := s.db.WithContext(persist).Create(&botMsg).Error; err != nil {
		return nil, apperror.Internal("failed to save reply", err)
	}

	if s.analytics != nil {
		if err := s.analytics.RecordQuery(persist, p.UserID, reply.TokensUsed, reply.ResponseTimeMs); err != nil {
			s.log.Warn("analytics update failed", zap.Uint("user_id", p.UserID), zap.Error(err))
		}
	}

	return &Exchange{UserMessage: userMsg, AIResponse: botMsg}, nil
}

// history returns up to historyWindow-1 earlier messages, oldest first.
func (s *ConversationService) history(ctx context.Context, conversationID, currentID uint) ([]ChatTurn, error) {
	var recent []models.Message
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(historyWindow).
		Find(&recent).Error; err != nil {
		return nil, apperror.Internal("failed to load history", err)
	}
	turns := make([]ChatTurn, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		if m.ID == currentID {
			continue
		}
		role := TurnUser
		if m.Type == models.MessageBot {
			role = TurnAssistant
		}
		turns = append(turns, ChatTurn{Role: role, Content: m.Content})
	}
	return turns, nil
}

func (s *ConversationService) ownedActive(ctx context.Context, userID, conversationID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND state = ?", conversationID, userID, models.StateActive).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("conversation not found")
	}
	if err != nil {
		return nil, apperror.Internal("failed to load conversation", err)
	}
	return &conv, nil
}

// List returns the caller's active conversations, most recently updated first.
func (s *ConversationService) List(ctx context.Context, userID uint, query string) ([]ConversationSummary, error) {
	db := s.db.WithContext(ctx)
	q := db.Where("user_id = ? AND state = ?", userID, models.StateActive)
	if query = strings.TrimSpace(query); query != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(query)+"%")
	}
	var convs []models.Conversation
	if err := q.Order("updated_at DESC, id DESC").Find(&convs).Error; err != nil {
		return nil, apperror.Internal("failed to list conversations", err)
	}
	out := make([]ConversationSummary, 0, len(convs))
	if len(convs) == 0 {
		return out, nil
	}

	ids := make([]uint, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}

	var counts []struct {
		ConversationID uint
		Total          int64
	}
	if err := db.Model(&models.Message{}).
		Select("conversation_id, COUNT(*) AS total").
		Where("conversation_id IN ?", ids).
		Group("conversation_id").
		Scan(&counts).Error; err != nil {
		return nil, apperror.Internal("failed to count messages", err)
	}
	countByConv := make(map[uint]int64, len(counts))
	for _, c := range counts {
		countByConv[c.ConversationID] = c.Total
	}

	latestIDs := db.Model(&models.Message{}).
		Select("MAX(id)").
		Where("conversation_id IN ?", ids).
		Group("conversation_id")
	var latest []models.Message
	if err := db.Where("id IN (?)", latestIDs).Find(&latest).Error; err != nil {
		return nil, apperror.Internal("failed to load last messages", err)
	}
	lastByConv := make(map[uint]string, len(latest))
	for _, m := range latest {
		lastByConv[m.ConversationID] = utils.Ellipsize(m.Content, previewLen)
	}

	for _, c := range convs {
		last, ok := lastByConv[c.ID]
		if !ok {
			last = noMessagesYet
		}
		out = append(out, ConversationSummary{Conversation: c, LastMessage: last, MessageCount: countByConv[c.ID]})
	}
	return out, nil
}

// Get returns an owned, active conversation with its messages in order.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID uint) (*models.Conversation, error) {
	conv, err := s.ownedActive(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conv.ID).
		Order("created_at ASC, id ASC").
		Find(&conv.Messages).Error; err != nil {
		return nil, apperror.Internal("failed to load messages", err)
	}
	return conv, nil
}

// Delete hides the conversation; it stays in storage.
func (s *ConversationService) Delete(ctx context.Context, userID, conversationID uint) error {
	res := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ? AND user_id = ? AND state = ?", conversationID, userID, models.StateActive).
		Update("state", models.StateDeleted)
	if res.Error != nil {
		return apperror.Internal("failed to delete conversation", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("conversation not found")
	}
	return nil
}
