// Package llm defines the interface for answer generation adapters.
package llm

import "context"

// Adapter generates a spoken-style answer to a caller's question.
type Adapter interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Answer returns a reply to text, steered by systemPrompt.
	Answer(ctx context.Context, systemPrompt, text string) (string, error)
}
