package mock

import (
	"context"
	"errors"
	"testing"

	"ivr-voice-bridge-service/internal/service/filestore"
)

func TestStore_FetchMissing(t *testing.T) {
	s := New()

	_, err := s.Fetch(context.Background(), "root/a/000.wav")
	if !errors.Is(err, filestore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if s.FetchCount("root/a/000.wav") != 1 {
		t.Errorf("expected 1 fetch, got %d", s.FetchCount("root/a/000.wav"))
	}
}

func TestStore_PutFetchStore(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Put("root/a/000.wav", []byte("rec"))
	data, err := s.Fetch(ctx, "root/a/000.wav")
	if err != nil || string(data) != "rec" {
		t.Fatalf("expected 'rec', got %q err=%v", data, err)
	}

	if err := s.Store(ctx, "root/a/000.mp3", []byte("ans")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := s.Get("root/a/000.mp3"); !ok || string(got) != "ans" {
		t.Errorf("expected stored answer, got %q", got)
	}
	if uploads := s.Uploads(); len(uploads) != 1 || uploads[0] != "root/a/000.mp3" {
		t.Errorf("expected one upload, got %v", uploads)
	}
}

func TestStore_FailOn(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.Put("p", []byte("x"))
	s.FailOn("p", boom)

	if _, err := s.Fetch(context.Background(), "p"); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}
	if err := s.Store(context.Background(), "p", nil); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}

	s.FailOn("p", nil)
	if _, err := s.Fetch(context.Background(), "p"); err != nil {
		t.Errorf("expected cleared failure, got %v", err)
	}
}

func TestStore_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Fetch(ctx, "p"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
