// Package logging configures the global zerolog logger and hands out
// context loggers for components, callers and processing cycles.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const serviceName = "ivr-voice-bridge-service"

// Config holds logging configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	// Output defaults to stdout.
	Output io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
	}
}

// Init replaces the global logger. Every entry carries the service name so
// lines from the IVR bridge can be told apart in a shared sink.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(out).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	return log.Logger
}

func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}

// WithCaller tags entries with the caller identity (the IVR phone number).
func WithCaller(identity string) zerolog.Logger {
	return log.With().
		Str("identity", identity).
		Logger()
}

// WithCycle tags entries with one processing cycle. index is the zero-padded
// artifact base name, so log lines match file names on the IVR side.
func WithCycle(identity, index, cycleID string) zerolog.Logger {
	return log.With().
		Str("identity", identity).
		Str("index", index).
		Str("cycleId", cycleID).
		Logger()
}
