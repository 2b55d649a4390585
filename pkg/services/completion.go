package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"heirloom/pkg/auth"
	"heirloom/pkg/config"
)

// FallbackReply is returned whenever the upstream model cannot produce an answer.
const FallbackReply = "I apologize, but I'm having trouble processing your request right now. Please try again in a moment!"

const (
	TurnUser      = "user"
	TurnAssistant = "assistant"
)

type ChatTurn struct {
	Role    string
	Content string
}

type CompletionRequest struct {
	Message       string
	History       []ChatTurn
	Role          auth.Role
	LegacyContext string
}

type Completion struct {
	Content        string
	TokensUsed     int
	ResponseTimeMs int64
	Model          string
}

// CompletionProvider produces assistant replies. Implementations never fail:
// upstream errors are folded into a fallback reply.
type CompletionProvider interface {
	Generate(ctx context.Context, req CompletionRequest) Completion
	DraftLegacyMessage(ctx context.Context, prompt, category string) string
	Name() string
}

// NewCompletionProvider picks Gemini when it is configured and usable and the
// mock provider otherwise.
func NewCompletionProvider(ctx context.Context, cfg *config.Config, log *zap.Logger) CompletionProvider {
	if !cfg.GeminiUsable() {
		log.Info("completion provider running in mock mode",
			zap.Bool("gemini_enabled", cfg.IsGeminiEnabled),
			zap.Bool("api_key_present", strings.TrimSpace(cfg.GeminiAPIKey) != ""))
		return NewMockProvider()
	}
	p, err := NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.CompletionTimeout(), log)
	if err != nil {
		log.Error("gemini client init failed, using mock provider", zap.Error(err))
		return NewMockProvider()
	}
	log.Info("completion provider ready", zap.String("model", cfg.GeminiModel))
	return p
}

// estimateTokens approximates token usage at four characters per token.
func estimateTokens(parts ...string) int {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	return n / 4
}

func systemPrompt(role auth.Role, legacyContext string) string {
	var b strings.Builder
	b.WriteString("You are the Knowledge Heirloom assistant, an internal helper that preserves and shares the engineering knowledge of a retiring senior developer. ")
	switch role {
	case auth.RoleSeniorDev:
		b.WriteString("You are talking to a senior developer. Help them capture their experience as clear, reusable guidance: ask what context a newcomer would miss, suggest structure for runbooks and decision records, and keep technical depth.")
	case auth.RoleAdmin:
		b.WriteString("You are talking to an administrator. Focus on how knowledge is organised, which gaps the knowledge base has, and how adoption across the team can be measured and improved.")
	default:
		b.WriteString("You are talking to an employee who is learning the systems. Explain step by step, prefer concrete examples, and point to the relevant team practices.")
		if strings.TrimSpace(legacyContext) != "" {
			fmt.Fprintf(&b, "\n\nRecent advice left by the senior developer, use it when it is relevant:\n%s", legacyContext)
		}
	}
	b.WriteString("\n\nBe concise and friendly. If you are not sure, say so instead of guessing.")
	return b.String()
}

func legacyDraftPrompt(prompt, category string) string {
	return fmt.Sprintf("Write a short %s message (at most 200 words) from a senior developer to the colleagues who will carry on their work. Keep it warm, specific and practical. Topic: %s",
		category, prompt)
}

func legacyDraftFallback(prompt string) string {
	return fmt.Sprintf("A note for the team about %s: write down what you learn, ask early, and leave the code a little clearer than you found it.", strings.TrimSpace(prompt))
}
