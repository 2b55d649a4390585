package services

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const MockModelName = "mock"

var mockReplies = []string{
	"Good question. The usual approach here is to start from the runbook in the knowledge base, reproduce the issue locally, and only then change configuration. If something is unclear, ask in the team channel with what you already tried.",
	"From what the team has documented, this is handled in small steps: check the service health first, look at the recent deploys, and roll back before you debug in production.",
	"A senior developer's rule of thumb: write down the decision and the reason behind it. Search the knowledge base for an existing decision record before starting something new.",
	"I can help with that. Break the task into the smallest change you can ship and test, and keep notes as you go so the next person does not have to rediscover them.",
}

// MockProvider answers from a fixed set of replies. It is used when no model
// key is configured and in tests.
type MockProvider struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMockProvider() *MockProvider {
	return &MockProvider{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (m *MockProvider) Name() string { return MockModelName }

func (m *MockProvider) Generate(ctx context.Context, req CompletionRequest) Completion {
	start := time.Now()
	m.mu.Lock()
	reply := mockReplies[m.rnd.Intn(len(mockReplies))]
	jitter := m.rnd.Int63n(200)
	m.mu.Unlock()

	return Completion{
		Content:        reply,
		TokensUsed:     estimateTokens(reply),
		ResponseTimeMs: time.Since(start).Milliseconds() + jitter,
		Model:          MockModelName,
	}
}

func (m *MockProvider) DraftLegacyMessage(ctx context.Context, prompt, category string) string {
	return legacyDraftFallback(prompt)
}
