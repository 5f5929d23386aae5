// Package pipeline drives caller sessions through processing cycles:
// download the recording, transcribe, generate an answer, synthesize it and
// upload the result for the IVR to play.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"ivr-voice-bridge-service/internal/models"
	"ivr-voice-bridge-service/internal/observability/logging"
	"ivr-voice-bridge-service/internal/observability/metrics"
	"ivr-voice-bridge-service/internal/schema"
	"ivr-voice-bridge-service/internal/service/cycle"
	"ivr-voice-bridge-service/internal/service/filestore"
	"ivr-voice-bridge-service/internal/service/llm"
	"ivr-voice-bridge-service/internal/service/results"
	"ivr-voice-bridge-service/internal/service/session"
	"ivr-voice-bridge-service/internal/service/stt"
	"ivr-voice-bridge-service/internal/service/tts"
)

// Cycle steps, used as the failure label in logs, events and metrics.
const (
	StepFetch      = "fetch"
	StepTranscribe = "transcribe"
	StepGenerate   = "generate"
	StepSynthesize = "synthesize"
	StepUpload     = "upload"
	StepPanic      = "panic"
)

var (
	ErrRecordingTooLarge = filestore.ErrTooLarge
	ErrRetriesExhausted  = errors.New("recording not found after max retries")
)

// publishTimeout bounds event publishing after a cycle has ended.
const publishTimeout = 5 * time.Second

// Config holds cycle settings.
type Config struct {
	Root                string        // remote directory holding per-caller folders
	Language            string        // spoken language passed to transcription
	SystemPrompt        string        // behavioral policy for answer generation
	CycleTimeout        time.Duration // 0 disables the per-cycle deadline
	MaxConcurrentCycles int
	MaxRetries          int   // 0 retries forever
	MaxRecordingBytes   int64 // 0 disables the limit
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Root:                "ivr2:/5/Phone",
		Language:            "he",
		CycleTimeout:        2 * time.Minute,
		MaxConcurrentCycles: 8,
		MaxRecordingBytes:   10 * 1024 * 1024,
	}
}

// EventPublisher publishes cycle outcomes. *events.Publisher implements it.
type EventPublisher interface {
	PublishExchange(ctx context.Context, key string, event any) error
	PublishFailure(ctx context.Context, key string, event any) error
}

// Deps are the collaborators of a Pipeline. Publisher, Validator, Metrics
// and Cycles are optional.
type Deps struct {
	Registry  *session.Registry
	Store     filestore.Adapter
	STT       stt.Adapter
	LLM       llm.Adapter
	TTS       tts.Adapter
	Results   *results.Log
	Publisher EventPublisher
	Validator *schema.Validator
	Metrics   *metrics.Metrics
	Cycles    *cycle.Generator
}

// Pipeline starts one cycle per due session on every Tick. Cycles for
// different callers run concurrently up to MaxConcurrentCycles; cycles for
// the same caller never overlap because TryStart is a compare-and-set on the
// session state.
type Pipeline struct {
	cfg  Config
	deps Deps
	sem  *semaphore.Weighted
	wg   sync.WaitGroup
	log  zerolog.Logger
}

// New creates a pipeline.
func New(cfg Config, deps Deps) *Pipeline {
	if cfg.MaxConcurrentCycles <= 0 {
		cfg.MaxConcurrentCycles = 1
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.DefaultMetrics
	}
	if deps.Cycles == nil {
		deps.Cycles = cycle.New()
	}
	if deps.Validator == nil {
		deps.Validator = schema.New()
	}
	return &Pipeline{
		cfg:  cfg,
		deps: deps,
		sem:  semaphore.NewWeighted(int64(cfg.MaxConcurrentCycles)),
		log:  logging.WithComponent("pipeline"),
	}
}

// Tick scans the registry once and dispatches a cycle for every due session
// that can get a concurrency slot. It never waits on adapter calls. Sessions
// left without a slot stay due for the next tick. Returns the number of
// cycles started.
func (p *Pipeline) Tick(ctx context.Context) int {
	due := p.deps.Registry.Due()
	started := 0
	for i, id := range due {
		if !p.sem.TryAcquire(1) {
			p.deps.Metrics.RecordCyclesDeferred(len(due) - i)
			p.log.Debug().
				Int("deferred", len(due)-i).
				Msg("No free cycle slot, deferring to next tick")
			break
		}

		s, ok := p.deps.Registry.TryStart(id)
		if !ok {
			p.sem.Release(1)
			continue
		}

		started++
		p.wg.Add(1)
		go func(s session.Session) {
			defer p.wg.Done()
			defer p.sem.Release(1)
			p.runCycle(ctx, s)
		}(s)
	}
	return started
}

// Wait blocks until every dispatched cycle has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// stepError tags an error with the cycle step that produced it.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.step + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

// outcome is what a successful cycle produced.
type outcome struct {
	transcription string
	answer        string
	answerSeconds float64
}

// runCycle runs one cycle for a session already in PROCESSING and always
// moves it out of PROCESSING before returning.
func (p *Pipeline) runCycle(ctx context.Context, s session.Session) {
	start := time.Now()
	base := cycle.BaseName(s.SequenceIndex)
	cycleID := p.deps.Cycles.Next(s.Identity)
	logger := logging.WithCycle(s.Identity, base, cycleID)

	p.deps.Metrics.RecordCycleStart()
	logger.Debug().Int("retries", s.Retries).Msg("Cycle started")

	res, err := p.safeProcess(ctx, s, base, logger)
	duration := time.Since(start).Seconds()

	if err == nil {
		p.complete(ctx, s, base, cycleID, res, logger)
		p.deps.Metrics.RecordCycleEnd("completed", "", duration)
		return
	}

	var se *stepError
	step := StepFetch
	if errors.As(err, &se) {
		step = se.step
	}

	if errors.Is(err, filestore.ErrNotFound) {
		if p.cfg.MaxRetries <= 0 || s.Retries+1 < p.cfg.MaxRetries {
			if _, rerr := p.deps.Registry.Retry(s.Identity); rerr != nil {
				logger.Error().Err(rerr).Msg("Failed to mark session for retry")
			}
			logger.Debug().Msg("Recording not available yet, will retry")
			p.deps.Metrics.RecordCycleEnd("retry", "", duration)
			return
		}
		err = &stepError{step: StepFetch, err: fmt.Errorf("%w (%d attempts)", ErrRetriesExhausted, s.Retries+1)}
	}

	p.fail(ctx, s, base, cycleID, step, err, logger)
	p.deps.Metrics.RecordCycleEnd("failed", step, duration)
}

// safeProcess runs process under the cycle deadline and converts a panic
// into a failure so the session never stays in PROCESSING.
func (p *Pipeline) safeProcess(ctx context.Context, s session.Session, base string, logger zerolog.Logger) (res outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Cycle panicked")
			err = &stepError{step: StepPanic, err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if p.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CycleTimeout)
		defer cancel()
	}
	return p.process(ctx, s, base, logger)
}

func (p *Pipeline) process(ctx context.Context, s session.Session, base string, logger zerolog.Logger) (outcome, error) {
	var res outcome

	recordingPath := filestore.Path(p.cfg.Root, s.Identity, base+".wav")
	var recording []byte
	err := p.call(p.adapterName("filestore", "fetch"), func() (err error) {
		recording, err = p.deps.Store.Fetch(ctx, recordingPath)
		return err
	})
	if err != nil {
		return res, &stepError{step: StepFetch, err: err}
	}
	if p.cfg.MaxRecordingBytes > 0 && int64(len(recording)) > p.cfg.MaxRecordingBytes {
		return res, &stepError{step: StepFetch, err: fmt.Errorf("%w: %d > %d bytes", ErrRecordingTooLarge, len(recording), p.cfg.MaxRecordingBytes)}
	}
	p.deps.Metrics.RecordRecording(len(recording))
	logger.Info().Int("bytes", len(recording)).Msg("Recording downloaded")

	err = p.call(p.adapterName("stt", p.deps.STT.Name()), func() (err error) {
		res.transcription, err = p.deps.STT.Transcribe(ctx, recording, p.cfg.Language)
		return err
	})
	if err != nil {
		return res, &stepError{step: StepTranscribe, err: err}
	}
	logger.Info().Str("transcription", res.transcription).Msg("Recording transcribed")

	err = p.call(p.adapterName("llm", p.deps.LLM.Name()), func() (err error) {
		res.answer, err = p.deps.LLM.Answer(ctx, p.cfg.SystemPrompt, res.transcription)
		return err
	})
	if err != nil {
		return res, &stepError{step: StepGenerate, err: err}
	}
	logger.Info().Str("answer", res.answer).Msg("Answer generated")

	encodings := []tts.Encoding{tts.EncodingMP3, tts.EncodingLinear16}
	audio := make(map[tts.Encoding][]byte, len(encodings))
	for _, enc := range encodings {
		var data []byte
		err = p.call(p.adapterName("tts", p.deps.TTS.Name()), func() (err error) {
			data, err = p.deps.TTS.Synthesize(ctx, res.answer, enc)
			return err
		})
		if err != nil {
			return res, &stepError{step: StepSynthesize, err: fmt.Errorf("%s: %w", enc, err)}
		}
		audio[enc] = data
	}

	if secs, err := tts.MP3Duration(audio[tts.EncodingMP3]); err == nil && secs > 0 {
		res.answerSeconds = secs
		p.deps.Metrics.RecordAnswerAudio(secs)
	}

	for _, enc := range encodings {
		resultPath := filestore.Path(p.cfg.Root, s.Identity, base+"."+enc.Extension())
		err = p.call(p.adapterName("filestore", "store"), func() error {
			return p.deps.Store.Store(ctx, resultPath, audio[enc])
		})
		if err != nil {
			return res, &stepError{step: StepUpload, err: err}
		}
	}
	logger.Info().Msg("Answer uploaded")

	return res, nil
}

// complete records the exchange, publishes it and advances the session.
func (p *Pipeline) complete(ctx context.Context, s session.Session, base, cycleID string, res outcome, logger zerolog.Logger) {
	now := time.Now().UnixMilli()
	rec := models.ExchangeRecord{
		Identity:      s.Identity,
		Index:         base,
		Transcription: res.transcription,
		Answer:        res.answer,
		CycleID:       cycleID,
		CompletedAt:   now,
	}
	if err := p.deps.Validator.Validate(rec); err != nil {
		logger.Warn().Err(err).Msg("Exchange record failed validation, not logged")
	} else if p.deps.Results != nil {
		p.deps.Results.Append(rec)
	}

	next, err := p.deps.Registry.Complete(s.Identity)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to complete session")
	}
	logger.Info().
		Int("nextIndex", next.SequenceIndex).
		Str("state", next.State.String()).
		Msg("Cycle completed")

	p.publish(ctx, s.Identity, models.ExchangeCompleted{
		EventType:     models.EventExchangeCompleted,
		Identity:      s.Identity,
		Index:         base,
		CycleID:       cycleID,
		Timestamp:     now,
		Transcription: res.transcription,
		Answer:        res.answer,
		AnswerSeconds: res.answerSeconds,
	}, logger)
}

// fail abandons the cycle and returns the session to IDLE.
func (p *Pipeline) fail(ctx context.Context, s session.Session, base, cycleID, step string, cause error, logger zerolog.Logger) {
	next, err := p.deps.Registry.Fail(s.Identity)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to reset session")
	}
	logger.Warn().
		Err(cause).
		Str("step", step).
		Str("state", next.State.String()).
		Msg("Cycle failed")

	p.publish(ctx, s.Identity, models.CycleFailed{
		EventType: models.EventCycleFailed,
		Identity:  s.Identity,
		Index:     base,
		CycleID:   cycleID,
		Timestamp: time.Now().UnixMilli(),
		Step:      step,
		Error:     cause.Error(),
	}, logger)
}

func (p *Pipeline) publish(ctx context.Context, key string, event any, logger zerolog.Logger) {
	if p.deps.Publisher == nil {
		return
	}
	if err := p.deps.Validator.Validate(event); err != nil {
		logger.Error().Err(err).Msg("Event validation failed, not publishing")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	var err error
	switch event.(type) {
	case models.CycleFailed:
		err = p.deps.Publisher.PublishFailure(ctx, key, event)
	default:
		err = p.deps.Publisher.PublishExchange(ctx, key, event)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to publish event")
	}
}

// call times an adapter call and records its latency and error class.
func (p *Pipeline) call(adapter string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.deps.Metrics.RecordAdapterCall(adapter, ClassifyError(err), time.Since(start).Seconds())
	return err
}

func (p *Pipeline) adapterName(kind, name string) string {
	return kind + "_" + name
}
