package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	system    string
	maxTokens int64
}

func NewAnthropicClient(s Settings) (*AnthropicClient, error) {
	if s.APIKey == "" {
		return nil, errors.New("anthropic api key missing; set LLM_API_KEY")
	}
	if s.Model == "" || s.Model == DefaultModel {
		s.Model = defaultAnthropicModel
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = 2048
	}
	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithMaxRetries(0),
	}
	if s.BaseURL != "" && s.BaseURL != DefaultBaseURL {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	if s.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(s.Timeout))
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     s.Model,
		system:    s.SystemPrompt,
		maxTokens: s.MaxTokens,
	}, nil
}

func (c *AnthropicClient) Model() string { return c.model }

func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: c.system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		te := &TransportError{Provider: "anthropic", Err: err}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			te.StatusCode = apiErr.StatusCode
		}
		return "", te
	}

	var sb strings.Builder
	for _, content := range msg.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &TransportError{Provider: "anthropic", Err: ErrEmptyResponse}
	}
	return sb.String(), nil
}
