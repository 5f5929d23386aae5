// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSystemPrompt is the behavioral policy sent with every transcription
// to the answer generation engine.
const DefaultSystemPrompt = "You are a helpful assistant that answers in Hebrew. " +
	"Answer only questions about programming and computer science; politely decline anything else. " +
	"Your answer is read aloud over the phone: keep it short, use plain sentences, " +
	"and never use lists, markdown, code blocks, emoji or symbols that cannot be spoken."

// Configuration is the full service configuration.
type Configuration struct {
	Service       ServiceConfig
	FileStore     FileStoreConfig
	STT           STTConfig
	LLM           LLMConfig
	TTS           TTSConfig
	Pipeline      PipelineConfig
	Keepalive     KeepaliveConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds HTTP serving settings.
type ServiceConfig struct {
	Principal   string
	Port        string
	RouteTarget string // routing directive returned to the IVR on a valid webhook
}

// FileStoreConfig holds the IVR platform file store settings.
type FileStoreConfig struct {
	Provider string // yemot, mock
	BaseURL  string
	Token    string
	Root     string
	Timeout  time.Duration
}

// STTConfig holds transcription settings.
type STTConfig struct {
	Provider string // openai, google, mock
	Language string
	Model    string
}

// LLMConfig holds answer generation settings.
type LLMConfig struct {
	Provider     string // openai, mock
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
}

// TTSConfig holds speech synthesis settings.
type TTSConfig struct {
	Provider     string // google, mock
	LanguageCode string
	VoiceGender  string
}

// PipelineConfig holds polling and cycle limits.
type PipelineConfig struct {
	PollInterval        time.Duration
	CycleTimeout        time.Duration
	MaxConcurrentCycles int
	MaxRetries          int
	MaxRecordingBytes   int64
	ResultsCapacity     int
	SessionIdleTTL      time.Duration
}

// KeepaliveConfig holds self-ping settings.
type KeepaliveConfig struct {
	Enabled  bool
	URL      string
	Schedule string
}

// KafkaConfig holds exchange event publishing settings.
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicExchange string
	TopicFailure  string
	Principal     string
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel          string
	LogFormat         string
	MetricsPort       string
	GoogleCredentials string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first; variables already set take precedence.
func Load() *Configuration {
	_ = godotenv.Load()

	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-ivr-voice-bridge")
	port := envOrDefault("PORT", "3000")
	openAIKey := os.Getenv("OPENAI_API_KEY")
	openAIBase := os.Getenv("OPENAI_BASE_URL")

	return &Configuration{
		Service: ServiceConfig{
			Principal:   principal,
			Port:        port,
			RouteTarget: envOrDefault("ROUTE_TARGET", "/5"),
		},
		FileStore: FileStoreConfig{
			Provider: envOrDefault("FILESTORE_PROVIDER", "yemot"),
			BaseURL:  envOrDefault("YEMOT_BASE_URL", "https://www.call2all.co.il/ym/api"),
			Token:    os.Getenv("YEMOT_TOKEN"),
			Root:     envOrDefault("YEMOT_ROOT", "ivr2:/5/Phone"),
			Timeout:  envOrDefaultDuration("FILESTORE_TIMEOUT", 30*time.Second),
		},
		STT: STTConfig{
			Provider: envOrDefault("STT_PROVIDER", "openai"),
			Language: envOrDefault("STT_LANGUAGE", "he"),
			Model:    envOrDefault("OPENAI_STT_MODEL", "whisper-1"),
		},
		LLM: LLMConfig{
			Provider:     envOrDefault("LLM_PROVIDER", "openai"),
			APIKey:       openAIKey,
			BaseURL:      openAIBase,
			Model:        envOrDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			SystemPrompt: envOrDefault("SYSTEM_PROMPT", DefaultSystemPrompt),
		},
		TTS: TTSConfig{
			Provider:     envOrDefault("TTS_PROVIDER", "google"),
			LanguageCode: envOrDefault("TTS_LANGUAGE_CODE", "he-IL"),
			VoiceGender:  strings.ToUpper(envOrDefault("TTS_VOICE_GENDER", "FEMALE")),
		},
		Pipeline: PipelineConfig{
			PollInterval:        envOrDefaultDuration("POLL_INTERVAL", time.Second),
			CycleTimeout:        envOrDefaultDuration("CYCLE_TIMEOUT", 2*time.Minute),
			MaxConcurrentCycles: envOrDefaultInt("MAX_CONCURRENT_CYCLES", 8),
			MaxRetries:          envOrDefaultInt("MAX_RETRIES", 0),
			MaxRecordingBytes:   envOrDefaultInt64("MAX_RECORDING_BYTES", 10*1024*1024),
			ResultsCapacity:     envOrDefaultInt("RESULTS_CAPACITY", 100),
			SessionIdleTTL:      envOrDefaultDuration("SESSION_IDLE_TTL", 0),
		},
		Keepalive: KeepaliveConfig{
			Enabled:  envOrDefaultBool("KEEPALIVE_ENABLED", true),
			URL:      envOrDefault("SELF_PING_URL", "http://localhost:"+port+"/"),
			Schedule: envOrDefault("KEEPALIVE_SCHEDULE", "@every 10m"),
		},
		Kafka: KafkaConfig{
			Enabled:       envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:       splitList(os.Getenv("KAFKA_BROKERS")),
			TopicExchange: envOrDefault("KAFKA_TOPIC_EXCHANGE", "ivr.exchange.completed"),
			TopicFailure:  envOrDefault("KAFKA_TOPIC_FAILURE", "ivr.cycle.failed"),
			Principal:     envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:          envOrDefault("LOG_LEVEL", "info"),
			LogFormat:         envOrDefault("LOG_FORMAT", "json"),
			MetricsPort:       envOrDefault("METRICS_PORT", "9090"),
			GoogleCredentials: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
		},
	}
}

// Validate reports missing credentials for the selected providers.
func (c *Configuration) Validate() error {
	var errs []error
	if c.FileStore.Provider == "yemot" && c.FileStore.Token == "" {
		errs = append(errs, errors.New("YEMOT_TOKEN is required for the yemot file store"))
	}
	if (c.STT.Provider == "openai" || c.LLM.Provider == "openai") && c.LLM.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required for openai providers"))
	}
	if c.Pipeline.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be positive, got %v", c.Pipeline.PollInterval))
	}
	if c.Pipeline.ResultsCapacity <= 0 {
		errs = append(errs, fmt.Errorf("RESULTS_CAPACITY must be positive, got %d", c.Pipeline.ResultsCapacity))
	}
	return errors.Join(errs...)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
