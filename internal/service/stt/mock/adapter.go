// Package mock provides a mock STT adapter for testing without cloud credentials.
package mock

import (
	"context"
	"sync"
	"time"
)

// DefaultUtterances are returned in rotation by Transcribe.
var DefaultUtterances = []string{
	"מה זה מחרוזת",
	"מה השעה עכשיו",
	"ספר לי בדיחה קצרה",
	"איך אומרים תודה באנגלית",
}

// Adapter implements stt.Adapter with canned transcripts.
type Adapter struct {
	mu         sync.Mutex
	utterances []string
	next       int
	calls      int
	err        error
	delay      time.Duration
}

// New creates a mock adapter cycling through DefaultUtterances.
func New() *Adapter {
	return &Adapter{utterances: DefaultUtterances}
}

// NewWithUtterances creates a mock adapter cycling through the given texts.
func NewWithUtterances(utterances ...string) *Adapter {
	if len(utterances) == 0 {
		utterances = DefaultUtterances
	}
	return &Adapter{utterances: utterances}
}

// SetError makes every subsequent call fail with err. A nil err clears it.
func (a *Adapter) SetError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// SetDelay simulates recognition latency.
func (a *Adapter) SetDelay(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.delay = d
}

// Calls returns the number of Transcribe calls.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Name implements stt.Adapter.
func (a *Adapter) Name() string { return "mock" }

// Transcribe implements stt.Adapter.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	a.mu.Lock()
	a.calls++
	delay, err := a.delay, a.err
	a.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	text := a.utterances[a.next%len(a.utterances)]
	a.next++
	return text, nil
}
