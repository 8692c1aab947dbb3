package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/NikhilSetiya/dexanalyzer/internal/prompts"
	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
)

const (
	DefaultModel   = "gpt-4o"
	DefaultTimeout = 60 * time.Second

	providerOpenAI = "openai"
)

// OpenAIConfig configures the chat completions analyst.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// HTTPClient is used for every request; nil uses http.DefaultClient.
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// OpenAIAnalyst calls the OpenAI chat completions API.
type OpenAIAnalyst struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *logging.Logger
}

// NewOpenAIAnalyst creates an analyst. The API key must be non-empty.
func NewOpenAIAnalyst(cfg OpenAIConfig) (*OpenAIAnalyst, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperrors.NewConfigurationError("OPENAI_API_KEY", "OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &OpenAIAnalyst{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}, nil
}

// Provider implements Analyst.
func (a *OpenAIAnalyst) Provider() string { return providerOpenAI }

// Analyze sends one chat completion request.
func (a *OpenAIAnalyst) Analyze(ctx context.Context, prompt prompts.Prompt, data any) (*Analysis, error) {
	content, err := UserContent(prompt, data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	a.logger.WithContext(ctx).WithFields(logrus.Fields{
		"provider":    providerOpenAI,
		"model":       a.model,
		"prompt_kind": prompt.Kind,
		"max_tokens":  prompt.Parameters.MaxTokens,
	}).Debug("Requesting analysis")

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
		Temperature: prompt.Parameters.Temperature,
		MaxTokens:   prompt.Parameters.MaxTokens,
	})
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("openai chat completion").WithCause(err)
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, apperrors.NewRateLimitError("openai rate limit exceeded").WithCause(err)
		}
		return nil, apperrors.NewExternalError(providerOpenAI, "chat completion failed").WithCause(err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewExternalError(providerOpenAI, "chat completion returned no choices")
	}

	a.logger.WithContext(ctx).WithFields(logrus.Fields{
		"provider":          providerOpenAI,
		"model":             resp.Model,
		"duration_ms":       duration.Milliseconds(),
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Info("Analysis received")

	return &Analysis{
		Text:             resp.Choices[0].Message.Content,
		Provider:         providerOpenAI,
		Model:            modelOrDefault(resp.Model, a.model),
		Duration:         duration,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func modelOrDefault(got, want string) string {
	if got == "" {
		return want
	}
	return got
}
