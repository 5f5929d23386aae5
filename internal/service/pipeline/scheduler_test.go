package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"ivr-voice-bridge-service/internal/service/session"
)

func TestScheduler_RunsCyclesOnTicks(t *testing.T) {
	h := newHarness()
	p := New(testConfig(), h.deps)
	ticker := NewManualTicker()
	s := NewScheduler(p, h.registry, ticker, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	h.request(t, "A")
	h.store.Put(root+"/A/000.wav", []byte("audio"))

	ticker.Tick()
	waitFor(t, func() bool {
		st, _ := h.registry.Get("A")
		return st.SequenceIndex == 1 && st.State == session.StateIdle
	})
	// Each tick is received only after the previous scan returned, so the
	// gauge reflects the completed cycle once the third tick is taken.
	ticker.Tick()
	ticker.Tick()

	cancel()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	if st := h.session(t, "A"); st.SequenceIndex != 1 {
		t.Errorf("expected cycle completed, got index %d", st.SequenceIndex)
	}
	if got := testutil.ToFloat64(h.metrics.SessionsByState.WithLabelValues(session.StateIdle.String())); got != 1 {
		t.Errorf("expected 1 idle session in gauge, got %v", got)
	}
}

func TestScheduler_StopsWithoutTicks(t *testing.T) {
	h := newHarness()
	s := NewScheduler(New(testConfig(), h.deps), h.registry, NewManualTicker(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestTimeTicker(t *testing.T) {
	tk := NewTimeTicker(5 * time.Millisecond)
	defer tk.Stop()

	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("expected a tick")
	}
}
