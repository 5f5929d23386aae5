// Package openai provides an OpenAI chat completion adapter.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

// ErrEmptyAnswer is returned when the model produces no usable reply.
var ErrEmptyAnswer = errors.New("openai llm: empty answer")

// Config holds chat completion settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// DefaultConfig returns the chat defaults.
func DefaultConfig() Config {
	return Config{Model: goopenai.GPT4oMini}
}

// Adapter implements llm.Adapter using chat completions.
type Adapter struct {
	client *goopenai.Client
	cfg    Config
}

// New creates a chat adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai llm: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = goopenai.GPT4oMini
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Adapter{
		client: goopenai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}, nil
}

// Name implements llm.Adapter.
func (a *Adapter) Name() string { return "openai" }

// Answer sends the system prompt and the caller's text as a two-message chat.
func (a *Adapter) Answer(ctx context.Context, systemPrompt, text string) (string, error) {
	var messages []goopenai.ChatCompletionMessage
	if systemPrompt != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: text,
	})

	resp, err := a.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		Messages:    messages,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai llm: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}
