// Package mock provides a mock answer generator for testing without an LLM.
package mock

import (
	"context"
	"sync"
)

// Adapter implements llm.Adapter by echoing the question, or by calling a
// custom reply function.
type Adapter struct {
	mu      sync.Mutex
	reply   func(systemPrompt, text string) string
	err     error
	calls   int
	prompts []string
}

// New creates a mock that answers "תשובה: <text>".
func New() *Adapter {
	return &Adapter{reply: func(_, text string) string { return "תשובה: " + text }}
}

// NewWithReply creates a mock that answers with fn.
func NewWithReply(fn func(systemPrompt, text string) string) *Adapter {
	return &Adapter{reply: fn}
}

// SetError makes every subsequent call fail with err. A nil err clears it.
func (a *Adapter) SetError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Calls returns the number of Answer calls.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Questions returns the texts passed to Answer, in call order.
func (a *Adapter) Questions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.prompts...)
}

// Name implements llm.Adapter.
func (a *Adapter) Name() string { return "mock" }

// Answer implements llm.Adapter.
func (a *Adapter) Answer(ctx context.Context, systemPrompt, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.prompts = append(a.prompts, text)
	if a.err != nil {
		return "", a.err
	}
	return a.reply(systemPrompt, text), nil
}
