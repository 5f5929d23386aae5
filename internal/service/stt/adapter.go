// Package stt defines the interface for speech-to-text adapters.
package stt

import "context"

// Adapter defines the interface for STT providers (OpenAI, Google, etc.).
type Adapter interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Transcribe converts a complete recording to text in the given
	// spoken language (ISO-639-1, e.g. "he").
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}
