// Package keepalive periodically requests the service's own address so hosted
// environments do not idle it out.
package keepalive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"ivr-voice-bridge-service/internal/observability/logging"
	"ivr-voice-bridge-service/internal/observability/metrics"
)

// DefaultSchedule fires every ten minutes.
const DefaultSchedule = "@every 10m"

// scheduleParser accepts 5-field expressions and descriptors such as @every.
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Config holds self-ping settings.
type Config struct {
	URL      string
	Schedule string
	Timeout  time.Duration
	Metrics  *metrics.Metrics
}

// Pinger issues GET requests to URL on a cron schedule. Failures are logged
// and counted and have no other effect.
type Pinger struct {
	url     string
	client  *http.Client
	cron    *cron.Cron
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates a pinger. It fails only on an invalid schedule.
func New(cfg Config) (*Pinger, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.DefaultMetrics
	}

	p := &Pinger{
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		cron:    cron.New(cron.WithParser(scheduleParser)),
		metrics: cfg.Metrics,
		log:     logging.WithComponent("keepalive"),
	}
	if _, err := p.cron.AddFunc(cfg.Schedule, func() { p.Ping(context.Background()) }); err != nil {
		return nil, fmt.Errorf("keepalive: invalid schedule %q: %w", cfg.Schedule, err)
	}
	return p, nil
}

// Start begins the schedule in its own goroutine.
func (p *Pinger) Start() {
	p.log.Info().Str("url", p.url).Msg("Keepalive started")
	p.cron.Start()
}

// Stop halts the schedule and waits for a running ping to finish or ctx to
// expire.
func (p *Pinger) Stop(ctx context.Context) {
	select {
	case <-p.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Ping requests the URL once.
func (p *Pinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return p.failed(err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return p.failed(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return p.failed(fmt.Errorf("status %d", resp.StatusCode))
	}
	p.metrics.RecordKeepalive("ok")
	p.log.Debug().Int("status", resp.StatusCode).Msg("Self-ping ok")
	return nil
}

func (p *Pinger) failed(err error) error {
	p.metrics.RecordKeepalive("error")
	p.log.Warn().Err(err).Str("url", p.url).Msg("Self-ping failed")
	return fmt.Errorf("keepalive: %w", err)
}
