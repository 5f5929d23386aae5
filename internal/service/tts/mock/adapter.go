// Package mock provides a mock TTS adapter for testing without cloud credentials.
package mock

import (
	"context"
	"sync"

	"ivr-voice-bridge-service/internal/service/tts"
)

// Adapter implements tts.Adapter. Audio is the encoding name followed by the
// text, so tests can tell the two uploads apart.
type Adapter struct {
	mu     sync.Mutex
	errs   map[tts.Encoding]error
	calls  int
	lastTx string
}

// New creates a mock adapter.
func New() *Adapter {
	return &Adapter{errs: make(map[tts.Encoding]error)}
}

// FailOn makes synthesis in enc fail with err. A nil err clears it.
func (a *Adapter) FailOn(enc tts.Encoding, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err == nil {
		delete(a.errs, enc)
		return
	}
	a.errs[enc] = err
}

// Calls returns the number of Synthesize calls.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// LastText returns the text of the most recent call.
func (a *Adapter) LastText() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastTx
}

// Name implements tts.Adapter.
func (a *Adapter) Name() string { return "mock" }

// Synthesize implements tts.Adapter.
func (a *Adapter) Synthesize(ctx context.Context, text string, enc tts.Encoding) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.lastTx = text
	if err := a.errs[enc]; err != nil {
		return nil, err
	}
	return []byte(enc.String() + ":" + text), nil
}
