package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"heirloom/pkg/app"
	"heirloom/pkg/auth"
	svc "heirloom/pkg/services"
)

const legacyContextSize = 5

var (
	probeQueries string
	probeRole    string
	probeOut     string
	probeSleep   time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run prompts through the configured completion provider",
	Long: `Run every query in the queries file through the completion provider as a
single-turn conversation and write per-query timing and token usage.

The queries file is either ["q1", "q2"] or [{"q": "q1"}, {"q": "q2"}].`,
	RunE: runProbe,
}

func init() {
	f := probeCmd.Flags()
	f.StringVarP(&probeQueries, "queries", "q", "queries.json", "queries file")
	f.StringVar(&probeRole, "role", string(auth.RoleEmployee), "role the prompts are framed for")
	f.StringVarP(&probeOut, "out", "o", "probe-results.json", "results file")
	f.DurationVar(&probeSleep, "sleep", 600*time.Millisecond, "pause between calls")
}

type probeResult struct {
	Query          string `json:"query"`
	Response       string `json:"response"`
	Model          string `json:"model"`
	TokensUsed     int    `json:"tokens_used"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Fallback       bool   `json:"fallback"`
	Timestamp      string `json:"timestamp"`
}

type probeSummary struct {
	RunID        string        `json:"run_id"`
	StartedAt    string        `json:"started_at"`
	EndedAt      string        `json:"ended_at"`
	Env          string        `json:"env"`
	Provider     string        `json:"provider"`
	Role         auth.Role     `json:"role"`
	TotalQueries int           `json:"total_queries"`
	Fallbacks    int           `json:"fallbacks"`
	TotalTokens  int           `json:"total_tokens"`
	AvgMs        int64         `json:"avg_response_time_ms"`
	Results      []probeResult `json:"results"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	role, err := auth.ParseRole(probeRole)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(probeQueries)
	if err != nil {
		return fmt.Errorf("cannot read queries: %w", err)
	}
	queries, err := parseQueries(data)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var legacy string
	if role.Can(auth.CapReceiveLegacyContext) {
		if legacy, err = a.Legacy.PromptContext(ctx, legacyContextSize); err != nil {
			return err
		}
	}

	summary := probe(ctx, a.Provider, queries, role, legacy, probeSleep, func(r probeResult) {
		cmd.Printf("%s -> %dms tokens=%d fallback=%v\n", truncate(r.Query, 64), r.ResponseTimeMs, r.TokensUsed, r.Fallback)
	})
	summary.Env = cfg.AppEnv
	if err := writeJSON(probeOut, summary); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	cmd.Println("saved", probeOut)
	return nil
}

// probe runs each query in order, stopping early when ctx is cancelled.
func probe(ctx context.Context, p svc.CompletionProvider, queries []string, role auth.Role, legacy string, pause time.Duration, progress func(probeResult)) probeSummary {
	started := time.Now()
	s := probeSummary{
		RunID:     "probe-" + started.Format("20060102-150405") + "-" + uuid.NewString()[:8],
		StartedAt: started.Format(time.RFC3339),
		Provider:  p.Name(),
		Role:      role,
		Results:   make([]probeResult, 0, len(queries)),
	}
	var totalMs int64
	for i, q := range queries {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(pause):
			}
		}
		c := p.Generate(ctx, svc.CompletionRequest{Message: q, Role: role, LegacyContext: legacy})
		r := probeResult{
			Query:          q,
			Response:       strings.TrimSpace(c.Content),
			Model:          c.Model,
			TokensUsed:     c.TokensUsed,
			ResponseTimeMs: c.ResponseTimeMs,
			Fallback:       c.Content == svc.FallbackReply,
			Timestamp:      time.Now().Format(time.RFC3339),
		}
		if r.Fallback {
			s.Fallbacks++
		}
		s.TotalTokens += r.TokensUsed
		totalMs += r.ResponseTimeMs
		s.Results = append(s.Results, r)
		if progress != nil {
			progress(r)
		}
	}
	s.TotalQueries = len(s.Results)
	if s.TotalQueries > 0 {
		s.AvgMs = totalMs / int64(s.TotalQueries)
	}
	s.EndedAt = time.Now().Format(time.RFC3339)
	return s
}

// parseQueries accepts ["q1", ...] or [{"q": "..."}, ...] and drops blanks.
func parseQueries(data []byte) ([]string, error) {
	var arr []any
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("invalid queries file: %w", err)
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		var q string
		switch t := v.(type) {
		case string:
			q = t
		case map[string]any:
			q, _ = t["q"].(string)
		}
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("queries file is empty or malformed")
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
