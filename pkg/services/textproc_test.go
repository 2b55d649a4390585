package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	text := "Short one. The deploy pipeline runs on every merge! Rollbacks take under five minutes? " +
		"Alerts page the on-call engineer directly. This fourth sentence is never included."
	assert.Equal(t,
		"The deploy pipeline runs on every merge. Rollbacks take under five minutes. Alerts page the on-call engineer directly.",
		Summarize(text))

	assert.Equal(t, "tiny note", Summarize("  tiny note "))
	choppy := strings.Repeat("Hi there. ", 30)
	assert.Equal(t, choppy[:200]+"...", Summarize(choppy))
}

func TestKeywords(t *testing.T) {
	text := "Kubernetes clusters: kubernetes nodes, Kubernetes pods. Docker images and docker layers; nodes again."
	kw := Keywords(text)
	assert.Equal(t, []string{"kubernetes", "nodes", "docker", "clusters", "pods", "images", "layers", "again"}, kw)

	assert.Equal(t, []string{}, Keywords("the and for"))

	var many []string
	for i := 0; i < 15; i++ {
		many = append(many, "word"+strings.Repeat("z", i))
	}
	assert.Len(t, Keywords(strings.Join(many, " ")), maxKeywords)
}

func TestCategorize(t *testing.T) {
	cases := []struct{ text, filename, want string }{
		{"clean code matters", "", "development"},
		{"intro to programming", "", "development"},
		{"software lifecycle", "", "development"},
		{"the public api", "", "development"},
		{"a web framework overview", "", "development"},
		{"restart the server", "", "infrastructure"},
		{"database backups", "", "infrastructure"},
		{"cloud costs", "", "infrastructure"},
		{"deployment steps", "", "infrastructure"},
		{"Our docker setup", "x.md", "infrastructure"},
		{"authentication flow", "", "security"},
		{"authorization rules", "", "security"},
		{"encryption at rest", "", "security"},
		{"security review", "", "security"},
		{"vulnerability triage", "", "security"},
		{"quarterly data visualization", "", "analytics"},
		{"service metrics", "", "analytics"},
		{"the sales dashboard", "", "analytics"},
		{"analytics pipeline", "", "analytics"},
		{"mobile release", "", "mobile"},
		{"android build", "", "mobile"},
		{"ios signing", "", "mobile"},
		{"react native upgrade", "", "mobile"},
		{"flutter widgets", "", "mobile"},
		{"plain text", "onboarding-guide.pdf", "documentation"},
		{"user manual", "", "documentation"},
		{"documentation style", "", "documentation"},
		{"tutorial for newcomers", "", "documentation"},
		{"how-to rotate keys", "", "documentation"},
		{"growth strategy", "", "business"},
		{"project roadmap and meeting notes", "", "business"},
		{"product requirements", "", "business"},
		{"sprint planning", "", "business"},
		{"research notes", "", "research"},
		{"findings of the analysis", "", "research"},
		{"latency study", "", "research"},
		{"incident report", "", "research"},
		{"what we found", "findings.txt", "research"},
		// earlier buckets win
		{"database code", "", "development"},
		{"lunch menu", "menu.txt", "general"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Categorize(tc.text, tc.filename), tc.text)
	}
}
