package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ivr-voice-bridge-service/internal/config"
	"ivr-voice-bridge-service/internal/events"
	apihttp "ivr-voice-bridge-service/internal/http"
	"ivr-voice-bridge-service/internal/observability"
	"ivr-voice-bridge-service/internal/observability/logging"
	"ivr-voice-bridge-service/internal/observability/metrics"
	"ivr-voice-bridge-service/internal/schema"
	"ivr-voice-bridge-service/internal/service/cycle"
	"ivr-voice-bridge-service/internal/service/filestore"
	fsmock "ivr-voice-bridge-service/internal/service/filestore/mock"
	"ivr-voice-bridge-service/internal/service/filestore/yemot"
	"ivr-voice-bridge-service/internal/service/keepalive"
	"ivr-voice-bridge-service/internal/service/llm"
	llmmock "ivr-voice-bridge-service/internal/service/llm/mock"
	llmopenai "ivr-voice-bridge-service/internal/service/llm/openai"
	"ivr-voice-bridge-service/internal/service/pipeline"
	"ivr-voice-bridge-service/internal/service/results"
	"ivr-voice-bridge-service/internal/service/session"
	"ivr-voice-bridge-service/internal/service/stt"
	sttgoogle "ivr-voice-bridge-service/internal/service/stt/google"
	sttmock "ivr-voice-bridge-service/internal/service/stt/mock"
	sttopenai "ivr-voice-bridge-service/internal/service/stt/openai"
	"ivr-voice-bridge-service/internal/service/tts"
	ttsgoogle "ivr-voice-bridge-service/internal/service/tts/google"
	ttsmock "ivr-voice-bridge-service/internal/service/tts/mock"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	Registry  *session.Registry
	Results   *results.Log
	Pipeline  *pipeline.Pipeline
	Publisher *events.Publisher
	Metrics   *metrics.Metrics

	scheduler  *pipeline.Scheduler
	keepalive  *keepalive.Pinger
	httpServer *http.Server
	obsServer  *observability.Server
	closers    []func() error
	cancel     context.CancelFunc
	ready      atomic.Bool
}

// New constructs a new Application from the provided configuration and
// builds the adapters selected by it.
func New(ctx context.Context, cfg *config.Configuration) (*Application, error) {
	a := &Application{
		Cfg:     cfg,
		Metrics: metrics.DefaultMetrics,
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	store, err := newFileStore(cfg)
	if err != nil {
		return nil, err
	}
	sttAdapter, err := a.newSTT(ctx, cfg)
	if err != nil {
		return nil, err
	}
	llmAdapter, err := newLLM(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	ttsAdapter, err := a.newTTS(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	a.Publisher = events.New(&events.Config{
		Enabled:       cfg.Kafka.Enabled,
		Brokers:       cfg.Kafka.Brokers,
		TopicExchange: cfg.Kafka.TopicExchange,
		TopicFailure:  cfg.Kafka.TopicFailure,
		Principal:     cfg.Kafka.Principal,
		Metrics:       a.Metrics,
	})
	a.closers = append(a.closers, a.Publisher.Close)

	a.Registry = session.NewRegistry()
	a.Results = results.New(cfg.Pipeline.ResultsCapacity)
	validator := schema.New()

	a.Pipeline = pipeline.New(pipeline.Config{
		Root:                cfg.FileStore.Root,
		Language:            cfg.STT.Language,
		SystemPrompt:        cfg.LLM.SystemPrompt,
		CycleTimeout:        cfg.Pipeline.CycleTimeout,
		MaxConcurrentCycles: cfg.Pipeline.MaxConcurrentCycles,
		MaxRetries:          cfg.Pipeline.MaxRetries,
		MaxRecordingBytes:   cfg.Pipeline.MaxRecordingBytes,
	}, pipeline.Deps{
		Registry:  a.Registry,
		Store:     store,
		STT:       sttAdapter,
		LLM:       llmAdapter,
		TTS:       ttsAdapter,
		Results:   a.Results,
		Publisher: a.Publisher,
		Validator: validator,
		Metrics:   a.Metrics,
		Cycles:    cycle.New(),
	})

	if cfg.Keepalive.Enabled {
		a.keepalive, err = keepalive.New(keepalive.Config{
			URL:      cfg.Keepalive.URL,
			Schedule: cfg.Keepalive.Schedule,
			Metrics:  a.Metrics,
		})
		if err != nil {
			a.close()
			return nil, err
		}
	}

	a.httpServer = &http.Server{
		Addr: ":" + cfg.Service.Port,
		Handler: apihttp.NewRouter(apihttp.Deps{
			Registry:    a.Registry,
			Results:     a.Results,
			Validator:   validator,
			Metrics:     a.Metrics,
			RouteTarget: cfg.Service.RouteTarget,
			Ready:       a.ready.Load,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.Observability.MetricsPort != "" {
		a.obsServer = observability.NewServer(":"+cfg.Observability.MetricsPort, a.ready.Load)
	}

	appLogger.Info().
		Str("filestore", cfg.FileStore.Provider).
		Str("stt", sttAdapter.Name()).
		Str("llm", llmAdapter.Name()).
		Str("tts", ttsAdapter.Name()).
		Msg("IVR voice bridge application created")
	return a, nil
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	logCfg := logging.DefaultConfig()
	if a.Cfg.Observability.LogLevel != "" {
		logCfg.Level = a.Cfg.Observability.LogLevel
	}
	if a.Cfg.Observability.LogFormat != "" {
		logCfg.Format = a.Cfg.Observability.LogFormat
	}
	logging.Init(logCfg)

	a.Logger = logging.Logger().With().
		Str("component", "application").
		Logger()

	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("logFormat", logCfg.Format).
		Msg("Logger setup completed")
}

// Handler returns the public HTTP handler.
func (a *Application) Handler() http.Handler {
	return a.httpServer.Handler
}

// Start begins serving traffic and scanning sessions.
func (a *Application) Start(ctx context.Context) error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()

	if a.obsServer != nil {
		a.obsServer.Start()
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.scheduler = pipeline.NewScheduler(
		a.Pipeline,
		a.Registry,
		pipeline.NewTimeTicker(a.Cfg.Pipeline.PollInterval),
		a.Cfg.Pipeline.SessionIdleTTL,
	)
	go a.scheduler.Run(runCtx)

	if a.keepalive != nil {
		a.keepalive.Start()
	}

	go func() {
		startLogger.Info().Str("addr", a.httpServer.Addr).Msg("Starting HTTP server")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			startLogger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	a.ready.Store(true)
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Dur("pollInterval", a.Cfg.Pipeline.PollInterval).
		Msg("IVR voice bridge service starting")
	return nil
}

// Shutdown stops accepting webhooks, lets in-flight cycles end and releases
// adapters. It is best effort; the first error is returned.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().Msg("IVR voice bridge service shutting down")
	a.ready.Store(false)

	var errs []error
	if err := a.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if a.keepalive != nil {
		a.keepalive.Stop(ctx)
	}
	if a.cancel != nil {
		a.cancel()
		select {
		case <-a.scheduler.Done():
		case <-ctx.Done():
			shutdownLogger.Warn().Msg("Timed out waiting for in-flight cycles")
		}
	}
	if a.obsServer != nil {
		if err := a.obsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("observability server: %w", err))
		}
	}
	if err := a.close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *Application) close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newFileStore(cfg *config.Configuration) (filestore.Adapter, error) {
	switch cfg.FileStore.Provider {
	case "yemot":
		return yemot.New(yemot.Config{
			BaseURL:  cfg.FileStore.BaseURL,
			Token:    cfg.FileStore.Token,
			Timeout:  cfg.FileStore.Timeout,
			MaxBytes: cfg.Pipeline.MaxRecordingBytes,
		}, nil), nil
	case "mock":
		return fsmock.New(), nil
	default:
		return nil, fmt.Errorf("unknown FILESTORE_PROVIDER %q", cfg.FileStore.Provider)
	}
}

func (a *Application) newSTT(ctx context.Context, cfg *config.Configuration) (stt.Adapter, error) {
	switch cfg.STT.Provider {
	case "openai":
		return sttopenai.New(sttopenai.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.STT.Model,
		})
	case "google":
		gcfg := sttgoogle.DefaultConfig()
		gcfg.LanguageCode = cfg.TTS.LanguageCode
		gcfg.CredentialsFile = cfg.Observability.GoogleCredentials
		adapter, err := sttgoogle.New(ctx, gcfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, adapter.Close)
		return adapter, nil
	case "mock":
		return sttmock.New(), nil
	default:
		return nil, fmt.Errorf("unknown STT_PROVIDER %q", cfg.STT.Provider)
	}
}

func newLLM(cfg *config.Configuration) (llm.Adapter, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return llmopenai.New(llmopenai.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		})
	case "mock":
		return llmmock.New(), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLM.Provider)
	}
}

func (a *Application) newTTS(ctx context.Context, cfg *config.Configuration) (tts.Adapter, error) {
	switch cfg.TTS.Provider {
	case "google":
		adapter, err := ttsgoogle.New(ctx, ttsgoogle.Config{
			LanguageCode:    cfg.TTS.LanguageCode,
			VoiceGender:     cfg.TTS.VoiceGender,
			CredentialsFile: cfg.Observability.GoogleCredentials,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, adapter.Close)
		return adapter, nil
	case "mock":
		return ttsmock.New(), nil
	default:
		return nil, fmt.Errorf("unknown TTS_PROVIDER %q", cfg.TTS.Provider)
	}
}
