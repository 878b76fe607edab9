package llm

import (
	"context"
	"fmt"
	"time"
)

// DefaultSystemPrompt frames every scoring request.
const DefaultSystemPrompt = "你是一个专业的文本评估助手。"

// Client is a single-shot completion capability. Implementations return an
// error for any transport or upstream failure and never retry on their own.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Settings configures a provider client.
type Settings struct {
	Provider     string
	Model        string
	APIKey       string
	BaseURL      string
	SystemPrompt string
	MaxTokens    int64
	Timeout      time.Duration
}

// NewClient builds the client for s.Provider.
func NewClient(s Settings) (Client, error) {
	if s.SystemPrompt == "" {
		s.SystemPrompt = DefaultSystemPrompt
	}
	switch s.Provider {
	case "openai", "":
		return NewOpenAIClient(s)
	case "anthropic":
		return NewAnthropicClient(s)
	case "mock":
		return &MockClient{}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", s.Provider)
	}
}
