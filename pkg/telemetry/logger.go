package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the root zerolog logger from the harness log settings.
func NewLogger(cfg LoggingConfig) (zerolog.Logger, error) {
	var writer io.Writer = os.Stderr
	if cfg.FilePath != "" {
		flags := os.O_CREATE | os.O_WRONLY
		if cfg.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		file, err := os.OpenFile(cfg.FilePath, flags, 0o644)
		if err != nil {
			return zerolog.Nop(), err
		}
		writer = file
	}

	if cfg.Format == "console" {
		writer = zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: time.RFC3339,
		}
	}

	level := parseLogLevel(cfg.Level)
	if !cfg.Enabled && level < zerolog.WarnLevel {
		level = zerolog.WarnLevel
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger(), nil
}

// WithRun returns a child logger carrying the run ID.
func WithRun(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().Str("run_id", runID).Logger()
}

// WithEntity returns a child logger carrying an entity kind and natural
// key.
func WithEntity(logger zerolog.Logger, kind, naturalKey string) zerolog.Logger {
	return logger.With().Str("kind", kind).Str("entity", naturalKey).Logger()
}

// parseLogLevel converts a harness log level string to a zerolog level.
func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "trace", "TRACE":
		return zerolog.TraceLevel
	case "debug", "DEBUG":
		return zerolog.DebugLevel
	case "info", "INFO":
		return zerolog.InfoLevel
	case "warn", "warning", "WARN", "WARNING":
		return zerolog.WarnLevel
	case "error", "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
