package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikhilSetiya/dexanalyzer/internal/market"
	"github.com/NikhilSetiya/dexanalyzer/internal/prompts"
	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
	"github.com/NikhilSetiya/dexanalyzer/pkg/resilience"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newCompletionServer(t *testing.T, status int, reply string) (*httptest.Server, *chatRequest) {
	t.Helper()
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"requests"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "chatcmpl-1",
			"model": "gpt-4o-2024",
			"choices": []map[string]interface{}{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": reply}},
			},
			"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 40, "total_tokens": 160},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func samplePrompt() prompts.Prompt {
	return prompts.Prompt{
		Kind:       "gainers",
		System:     "You are an analyst.",
		User:       "Analyze these tokens.",
		Parameters: prompts.Parameters{Temperature: 0.7, MaxTokens: 4000},
	}
}

func TestUserContent(t *testing.T) {
	content, err := UserContent(samplePrompt(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Analyze these tokens.", content)

	content, err = UserContent(samplePrompt(), map[string]int{"count": 2})
	require.NoError(t, err)
	assert.Equal(t, "Analyze these tokens.\n\n{\n  \"count\": 2\n}", content)

	_, err = UserContent(samplePrompt(), make(chan int))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestNewOpenAIAnalyst_RequiresKey(t *testing.T) {
	_, err := NewOpenAIAnalyst(OpenAIConfig{APIKey: "  "})
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestOpenAIAnalyst_Analyze(t *testing.T) {
	srv, got := newCompletionServer(t, http.StatusOK, "## Summary\nLooks risky.")

	analyst, err := NewOpenAIAnalyst(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "openai", analyst.Provider())

	a, err := analyst.Analyze(context.Background(), samplePrompt(), []int{1, 2})
	require.NoError(t, err)

	assert.Equal(t, "## Summary\nLooks risky.", a.Text)
	assert.Equal(t, "gpt-4o-2024", a.Model)
	assert.Equal(t, 120, a.PromptTokens)
	assert.Equal(t, 40, a.CompletionTokens)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 4000, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "You are an analyst.", got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, "Analyze these tokens.\n\n[")
}

func TestOpenAIAnalyst_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType apperrors.ErrorType
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantType: apperrors.ErrorTypeRateLimit},
		{name: "server error", status: http.StatusInternalServerError, wantType: apperrors.ErrorTypeExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newCompletionServer(t, tt.status, "")
			analyst, err := NewOpenAIAnalyst(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = analyst.Analyze(context.Background(), samplePrompt(), nil)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, apperrors.GetType(err))
		})
	}
}

func TestOpenAIAnalyst_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	analyst, err := NewOpenAIAnalyst(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = analyst.Analyze(context.Background(), samplePrompt(), nil)
	assert.Equal(t, apperrors.ErrorTypeTimeout, apperrors.GetType(err))
}

func mockTokenData(name string, change float64) market.TokenData {
	return market.TokenData{
		Name:           name,
		Symbol:         name[:3],
		Price:          market.Float(0.00123),
		PriceChange24h: market.Float(change),
		Volume24h:      market.Float(500),
		Liquidity:      market.Float(2500),
		CreatedAt:      "2024-03-01T10:00:00Z",
		Exchange:       &market.Exchange{Name: "Raydium"},
	}
}

func TestMockAnalyst_Snapshot(t *testing.T) {
	tokens := make([]market.TokenData, 0, 7)
	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot", "Golf"} {
		tokens = append(tokens, mockTokenData(name, 150))
	}
	tokens[1].PriceChange24h = market.Float(12)
	snap := market.Snapshot{Chain: "solana", Endpoint: "gainers", Tokens: tokens}

	analyst := NewMockAnalyst()
	a, err := analyst.Analyze(context.Background(), samplePrompt(), snap)
	require.NoError(t, err)

	assert.Equal(t, "mock", a.Provider)
	assert.Contains(t, a.Text, "This analysis covers 7 tokens.")
	assert.Contains(t, a.Text, "### Alpha (Alp)")
	assert.Contains(t, a.Text, "- **Price**: $0.001230")
	assert.Contains(t, a.Text, "- **Creation Date**: 2024-03-01")
	assert.Contains(t, a.Text, "- **Exchange**: Raydium")
	assert.Contains(t, a.Text, "High price increase without supporting volume or liquidity.")
	assert.Contains(t, a.Text, "Price movement may not be sustainable.")
	assert.Contains(t, a.Text, "### Echo (Ech)")
	assert.NotContains(t, a.Text, "Foxtrot")
	assert.Contains(t, a.Text, "## Risk Warnings")

	again, err := analyst.Analyze(context.Background(), samplePrompt(), &snap)
	require.NoError(t, err)
	assert.Equal(t, a.Text, again.Text)
}

func TestMockAnalyst_Token(t *testing.T) {
	a, err := NewMockAnalyst().Analyze(context.Background(), prompts.Prompt{Kind: "token"}, mockTokenData("Alpha", 250))
	require.NoError(t, err)

	assert.Contains(t, a.Text, "Alpha (Alp) trades at $0.001230")
	assert.Contains(t, a.Text, "- **RISK SCORE**: 10/10")
	assert.Contains(t, a.Text, "- **RECOMMENDATION**: Avoid")
	assert.Contains(t, a.Text, "  - Thin trading volume")
}

func TestMockAnalyst_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockAnalyst().Analyze(ctx, samplePrompt(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type scriptedAnalyst struct {
	calls int
	err   error
}

func (s *scriptedAnalyst) Provider() string { return "scripted" }

func (s *scriptedAnalyst) Analyze(ctx context.Context, p prompts.Prompt, data any) (*Analysis, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Analysis{Text: "ok", Provider: "scripted"}, nil
}

type recordedCalls struct {
	mu       sync.Mutex
	statuses []string
	states   []int
}

func (r *recordedCalls) RecordLLMRequest(provider, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *recordedCalls) UpdateBreakerState(_ string, state int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func TestGuardedAnalyst(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	inner := &scriptedAnalyst{err: errors.New("upstream down")}
	rec := &recordedCalls{}

	g := NewGuardedAnalyst(inner, GuardConfig{
		MaxFailures: 2,
		Cooldown:    time.Minute,
		Recorder:    rec,
		Now:         func() time.Time { return now },
	})
	assert.Equal(t, "scripted", g.Provider())

	for i := 0; i < 2; i++ {
		_, err := g.Analyze(context.Background(), samplePrompt(), nil)
		assert.EqualError(t, err, "upstream down")
	}
	assert.Equal(t, resilience.StateOpen, g.Breaker().State())

	_, err := g.Analyze(context.Background(), samplePrompt(), nil)
	assert.True(t, resilience.IsCircuitBreakerError(err))
	assert.Equal(t, 2, inner.calls)

	now = now.Add(2 * time.Minute)
	inner.err = nil
	a, err := g.Analyze(context.Background(), samplePrompt(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", a.Text)
	assert.Equal(t, resilience.StateClosed, g.Breaker().State())

	assert.Equal(t, []string{"error", "error", "rejected", "success"}, rec.statuses)
	assert.Equal(t, []int{
		int(resilience.StateClosed),
		int(resilience.StateOpen),
		int(resilience.StateHalfOpen),
		int(resilience.StateClosed),
	}, rec.states)
}

func TestGuardedAnalyst_CancelledCallsDoNotTrip(t *testing.T) {
	rec := &recordedCalls{}
	g := NewGuardedAnalyst(NewMockAnalyst(), GuardConfig{MaxFailures: 1, Recorder: rec})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		_, err := g.Analyze(ctx, samplePrompt(), nil)
		assert.ErrorIs(t, err, context.Canceled)
	}

	assert.Equal(t, resilience.StateClosed, g.Breaker().State())
	assert.Equal(t, []string{"canceled", "canceled", "canceled"}, rec.statuses)
}
