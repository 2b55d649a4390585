package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const fallbackModel = "gemini-2.0-flash"

// GeminiProvider calls the Gemini API. The configured model is tried first,
// then the stable fallback model.
type GeminiProvider struct {
	client  *genai.Client
	models  []string
	timeout time.Duration
	log     *zap.Logger
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, timeout time.Duration, log *zap.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	models := []string{model}
	if model != fallbackModel {
		models = append(models, fallbackModel)
	}
	return &GeminiProvider{client: client, models: models, timeout: timeout, log: log.Named("gemini")}, nil
}

func (p *GeminiProvider) Name() string { return p.models[0] }

func (p *GeminiProvider) Close() error { return p.client.Close() }

func (p *GeminiProvider) Generate(ctx context.Context, req CompletionRequest) (out Completion) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("generate panicked", zap.Any("panic", r))
			out = p.fallback(start)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	system := systemPrompt(req.Role, req.LegacyContext)
	for _, name := range p.models {
		text, tokens, err := p.chat(ctx, name, system, req)
		if err != nil && isRetriable(err) {
			sleepWithContext(ctx, time.Second)
			text, tokens, err = p.chat(ctx, name, system, req)
		}
		if err == nil && strings.TrimSpace(text) != "" {
			if tokens <= 0 {
				tokens = estimateTokens(system, req.Message, text)
			}
			return Completion{
				Content:        strings.TrimSpace(text),
				TokensUsed:     tokens,
				ResponseTimeMs: time.Since(start).Milliseconds(),
				Model:          name,
			}
		}
		if err == nil {
			err = fmt.Errorf("empty reply")
		}
		p.log.Warn("model failed", zap.String("model", name), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return p.fallback(start)
}

func (p *GeminiProvider) fallback(start time.Time) Completion {
	return Completion{
		Content:        FallbackReply,
		TokensUsed:     0,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		Model:          p.models[0],
	}
}

func (p *GeminiProvider) chat(ctx context.Context, modelName, system string, req CompletionRequest) (string, int, error) {
	model := p.client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopP:            genai.Ptr[float32](0.9),
		MaxOutputTokens: genai.Ptr[int32](1024),
	}

	session := model.StartChat()
	session.History = toContents(req.History)

	resp, err := session.SendMessage(ctx, genai.Text(req.Message))
	if err != nil {
		return "", 0, err
	}
	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return responseText(resp), tokens, nil
}

func (p *GeminiProvider) DraftLegacyMessage(ctx context.Context, prompt, category string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("legacy draft panicked", zap.Any("panic", r))
			text = legacyDraftFallback(prompt)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	model := p.client.GenerativeModel(p.models[0])
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.8),
		MaxOutputTokens: genai.Ptr[int32](400),
	}
	resp, err := model.GenerateContent(ctx, genai.Text(legacyDraftPrompt(prompt, category)))
	if err != nil {
		p.log.Warn("legacy draft failed", zap.Error(err))
		return legacyDraftFallback(prompt)
	}
	if s := strings.TrimSpace(responseText(resp)); s != "" {
		return s
	}
	return legacyDraftFallback(prompt)
}

// toContents maps stored turns to Gemini roles. Gemini expects the history to
// open with a user turn, so leading assistant turns are dropped.
func toContents(history []ChatTurn) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		role := "user"
		if t.Role == TurnAssistant {
			role = "model"
		}
		if len(out) == 0 && role == "model" {
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Content)}})
	}
	return out
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

func isRetriable(err error) bool {
	if err == nil {
		return false
	}
	e := strings.ToLower(err.Error())
	if strings.Contains(e, "503") || strings.Contains(e, "unavailable") {
		return true
	}
	if strings.Contains(e, "429") || strings.Contains(e, "resource_exhausted") || strings.Contains(e, "quota") {
		return true
	}
	return false
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
