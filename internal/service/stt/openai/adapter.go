// Package openai provides an OpenAI Whisper speech-to-text adapter.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

// Config holds Whisper settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// DefaultConfig returns the Whisper defaults.
func DefaultConfig() Config {
	return Config{Model: goopenai.Whisper1}
}

// Adapter implements stt.Adapter using the OpenAI transcription API.
type Adapter struct {
	client *goopenai.Client
	model  string
}

// New creates a Whisper adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai stt: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = goopenai.Whisper1
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Adapter{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// Name implements stt.Adapter.
func (a *Adapter) Name() string { return "openai" }

// Transcribe uploads the recording as a WAV file and returns the text.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	resp, err := a.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    a.model,
		FilePath: "recording.wav",
		Reader:   bytes.NewReader(audio),
		Language: language,
		Format:   goopenai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("openai stt: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
