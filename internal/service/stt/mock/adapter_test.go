package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"ivr-voice-bridge-service/internal/service/stt"
)

var _ stt.Adapter = (*Adapter)(nil)

func TestAdapter_CyclesUtterances(t *testing.T) {
	a := NewWithUtterances("one", "two")
	ctx := context.Background()

	expected := []string{"one", "two", "one"}
	for i, want := range expected {
		got, err := a.Transcribe(ctx, []byte("audio"), "he")
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("call %d: expected %q, got %q", i, want, got)
		}
	}
	if a.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", a.Calls())
	}
}

func TestAdapter_Default(t *testing.T) {
	a := New()

	got, err := a.Transcribe(context.Background(), nil, "he")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != DefaultUtterances[0] {
		t.Errorf("expected %q, got %q", DefaultUtterances[0], got)
	}
	if a.Name() != "mock" {
		t.Errorf("expected name mock, got %s", a.Name())
	}
}

func TestAdapter_SetError(t *testing.T) {
	a := New()
	boom := errors.New("quota exceeded")
	a.SetError(boom)

	if _, err := a.Transcribe(context.Background(), nil, "he"); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}

	a.SetError(nil)
	if _, err := a.Transcribe(context.Background(), nil, "he"); err != nil {
		t.Errorf("expected error cleared, got %v", err)
	}
}

func TestAdapter_DelayHonorsContext(t *testing.T) {
	a := New()
	a.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := a.Transcribe(ctx, nil, "he"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
