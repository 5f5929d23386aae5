package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ivr-voice-bridge-service/internal/observability/logging"
	"ivr-voice-bridge-service/internal/observability/metrics"
	"ivr-voice-bridge-service/internal/service/session"
)

// Ticker delivers scan ticks. It decouples the scan from the timer so tests
// can drive ticks by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

// NewTimeTicker returns a Ticker backed by time.Ticker.
func NewTimeTicker(d time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(d)}
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }

// ManualTicker is a Ticker fired explicitly with Tick.
type ManualTicker struct {
	ch chan time.Time
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

// Tick delivers one tick, blocking until the scheduler receives it.
func (m *ManualTicker) Tick() { m.ch <- time.Now() }

func (m *ManualTicker) C() <-chan time.Time { return m.ch }
func (m *ManualTicker) Stop()               {}

// Scheduler runs the pipeline scan on every tick and keeps the session
// gauges current.
type Scheduler struct {
	pipeline *Pipeline
	registry *session.Registry
	ticker   Ticker
	idleTTL  time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger
	done     chan struct{}
}

// NewScheduler creates a scheduler. A positive idleTTL reclaims IDLE
// sessions untouched for that long.
func NewScheduler(p *Pipeline, registry *session.Registry, ticker Ticker, idleTTL time.Duration) *Scheduler {
	return &Scheduler{
		pipeline: p,
		registry: registry,
		ticker:   ticker,
		idleTTL:  idleTTL,
		metrics:  p.deps.Metrics,
		log:      logging.WithComponent("scheduler"),
		done:     make(chan struct{}),
	}
}

// Run scans on every tick until ctx is canceled, then waits for in-flight
// cycles to finish.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)
	defer s.ticker.Stop()

	s.log.Info().Dur("idleTTL", s.idleTTL).Msg("Scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Scheduler stopping, waiting for in-flight cycles")
			s.pipeline.Wait()
			return
		case <-s.ticker.C():
			s.tick(ctx)
		}
	}
}

// Done is closed when Run has returned.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) tick(ctx context.Context) {
	if n := s.registry.Reclaim(s.idleTTL); n > 0 {
		s.metrics.RecordSessionsReclaimed(n)
		s.log.Info().Int("reclaimed", n).Msg("Reclaimed idle sessions")
	}
	if n := s.pipeline.Tick(ctx); n > 0 {
		s.log.Debug().Int("started", n).Msg("Dispatched cycles")
	}
	s.metrics.SetSessionStates(s.registry.CountByState())
}
