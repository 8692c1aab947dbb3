// Package llm turns a prompt and the retrieved market data into a narrative
// analysis. The completion API is a black box: it is called once per
// request and never retried here.
package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/NikhilSetiya/dexanalyzer/internal/prompts"
	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
)

// Analysis is the text produced for one prompt.
type Analysis struct {
	Text             string        `json:"text"`
	Provider         string        `json:"provider"`
	Model            string        `json:"model"`
	Duration         time.Duration `json:"duration"`
	PromptTokens     int           `json:"prompt_tokens,omitempty"`
	CompletionTokens int           `json:"completion_tokens,omitempty"`
}

// Analyst produces an analysis of data guided by prompt.
type Analyst interface {
	Analyze(ctx context.Context, prompt prompts.Prompt, data any) (*Analysis, error)
	// Provider names the backend for logs, metrics and reports.
	Provider() string
}

// UserContent is the prompt's user message followed by a blank line and the
// indented JSON of data. A nil data leaves the message as-is.
func UserContent(prompt prompts.Prompt, data any) (string, error) {
	if data == nil {
		return prompt.User, nil
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode analysis data").WithCause(err)
	}
	return prompt.User + "\n\n" + string(raw), nil
}
