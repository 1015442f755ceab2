// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// ParseLogLevel converts a level name from configuration into a LogLevel.
// Unknown names fall back to LevelInfo.
func ParseLogLevel(name string) LogLevel {
	switch parseLevel(LogLevel(name)) {
	case zerolog.DebugLevel:
		return LevelDebug
	case zerolog.WarnLevel:
		return LevelWarn
	case zerolog.ErrorLevel:
		return LevelError
	default:
		return LevelInfo
	}
}

// parseLevel converts LogLevel to zerolog.Level. Only debug through error
// are accepted; anything else is Info.
func parseLevel(level LogLevel) zerolog.Level {
	name := strings.ToLower(string(level))
	if name == "warning" {
		name = "warn"
	}
	l, err := zerolog.ParseLevel(name)
	if err != nil || l < zerolog.DebugLevel || l > zerolog.ErrorLevel {
		return zerolog.InfoLevel
	}
	return l
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache reads (hit/miss, key)
//   - Conditional requests (If-None-Match, ETag match)
//   - Request flow for read-only routes
//
// Info: Normal operation events
//   - Snapshot replacements (seed, PUT)
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Rejected PUT bodies
//   - Client retry attempts
//   - Snapshot pair found half-present
//
// Error: Error conditions requiring attention
//   - Cache backend failures
//   - Requests failing after retries
//   - Configuration errors
//
// Context Fields:
//   - component: emitting component (server, snapshot, client)
//   - method, path, route: HTTP request
//   - status: HTTP status code
//   - duration: Request duration
//   - etag: snapshot ETag
//   - size: payload size (humanized)
//   - error_class: client error classification (client, server, network)
